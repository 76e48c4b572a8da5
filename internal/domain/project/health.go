package project

import (
	"github.com/finz/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// BudgetHealth is the traffic-light classification of a project's spend
// against its budget, as shown on the portfolio dashboard.
type BudgetHealth string

const (
	// HealthEnMeta: consumption at or under 90% and forecast within budget.
	HealthEnMeta BudgetHealth = "EN_META"
	// HealthEnRiesgo: consumption over 90% but forecast still within budget.
	HealthEnRiesgo BudgetHealth = "EN_RIESGO"
	// HealthSobrePresupuesto: forecast exceeds budget or spend already has.
	HealthSobrePresupuesto BudgetHealth = "SOBRE_PRESUPUESTO"
	// HealthSinPresupuesto: no budget to judge against.
	HealthSinPresupuesto BudgetHealth = "SIN_PRESUPUESTO"
)

// String returns the string representation of BudgetHealth
func (h BudgetHealth) String() string {
	return string(h)
}

// consumptionRiskPercent is the consumption share past which a project
// within budget is still flagged as at risk.
var consumptionRiskPercent = decimal.NewFromInt(90)

// EvaluateBudgetHealth classifies actual and forecast spend against a
// budget. All three amounts must share a currency.
func EvaluateBudgetHealth(budget, actual, forecast valueobject.Money) (BudgetHealth, error) {
	if budget.IsZero() || budget.IsNegative() {
		return HealthSinPresupuesto, nil
	}

	overForecast, err := forecast.GreaterThan(budget)
	if err != nil {
		return "", err
	}
	overSpent, err := actual.GreaterThan(budget)
	if err != nil {
		return "", err
	}
	if overForecast || overSpent {
		return HealthSobrePresupuesto, nil
	}

	riskThreshold := budget.CalculatePercentage(consumptionRiskPercent)
	atRisk, err := actual.GreaterThan(riskThreshold)
	if err != nil {
		return "", err
	}
	if atRisk {
		return HealthEnRiesgo, nil
	}

	return HealthEnMeta, nil
}
