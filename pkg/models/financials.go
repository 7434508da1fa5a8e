package models

// FinancialValue is one reported line item.
type FinancialValue struct {
	Label string  `json:"label,omitempty"`
	Unit  string  `json:"unit,omitempty"`
	Value float64 `json:"value"`
}

// FinancialStatement maps line-item keys (e.g. "revenues", "net_income_loss")
// to reported values for one filing.
type FinancialStatement map[string]FinancialValue

// FinancialReport is one company filing (quarterly or annual).
type FinancialReport struct {
	Ticker             string             `json:"ticker"`
	CompanyName        string             `json:"company_name,omitempty"`
	FiscalPeriod       string             `json:"fiscal_period"` // e.g. "Q2"
	FiscalYear         string             `json:"fiscal_year"`
	PeriodOfReportDate string             `json:"period_of_report_date"` // YYYY-MM-DD
	Timeframe          string             `json:"timeframe"`             // "quarterly" or "annual"
	IncomeStatement    FinancialStatement `json:"income_statement,omitempty"`
	BalanceSheet       FinancialStatement `json:"balance_sheet,omitempty"`
	CashFlowStatement  FinancialStatement `json:"cash_flow_statement,omitempty"`
}
