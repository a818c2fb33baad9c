// Package report holds the cash income report record validated by the
// beanguard CLI, and the stringformat constraint its fields use.
package report

import (
	"reflect"
	"time"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// GroupSettlement selects the constraints that apply once an income is settled.
const GroupSettlement validation.Group = "settlement"

// CashIncome is one row of a cash income report.
//
// The datainfo tag describes a field for humans; the stringformat constraint
// logs it when checking the field.
type CashIncome struct {
	Date       string    `yaml:"date" json:"date" validate:"required,stringformat=date" datainfo:"income date"`
	Amount     string    `yaml:"amount" json:"amount" validate:"required,stringformat=decimal" datainfo:"income amount"`
	Currency   string    `yaml:"currency" json:"currency" validate:"required,len=3,uppercase" datainfo:"ISO 4217 currency code"`
	Payer      Payer     `yaml:"payer" json:"payer" validate:"required"`
	Reference  string    `yaml:"reference" json:"reference" validate:"required,stringformat=code" groups:"settlement" datainfo:"settlement reference"`
	Remark     string    `yaml:"remark" json:"remark" validate:"max=200"`
	ReceivedAt time.Time `yaml:"received_at" json:"received_at" validate:"omitempty,past"`
}

// Payer identifies who paid.
type Payer struct {
	Name    string `yaml:"name" json:"name" validate:"required" datainfo:"payer name"`
	Account string `yaml:"account" json:"account" validate:"omitempty,stringformat=code" datainfo:"payer account"`
}

// Deposit books amount against the income and returns the new balance.
func (c *CashIncome) Deposit(amount string) string {
	return amount
}

// NewCashIncome creates an income for date and amount in currency.
func NewCashIncome(date, amount, currency string) *CashIncome {
	return &CashIncome{Date: date, Amount: amount, Currency: currency}
}

// DepositMethod describes CashIncome.Deposit for executable validation.
var DepositMethod = validation.Method{
	Receiver:         reflect.TypeOf(CashIncome{}),
	Name:             "Deposit",
	Parameters:       []validation.Parameter{{Name: "amount", Constraint: "required,stringformat=decimal"}},
	ReturnConstraint: "required",
}

// NewCashIncomeConstructor describes NewCashIncome for executable validation.
var NewCashIncomeConstructor = validation.Constructor{
	Type: reflect.TypeOf(CashIncome{}),
	Name: "NewCashIncome",
	Parameters: []validation.Parameter{
		{Name: "date", Constraint: "required,stringformat=date"},
		{Name: "amount", Constraint: "required,stringformat=decimal"},
		{Name: "currency", Constraint: "required,len=3"},
	},
	ReturnConstraint: "required",
}
