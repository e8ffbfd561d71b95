package prompt

const tableSystemPrompt = `You are a financial data assistant. You read statement tables scraped from screener.in, where all values are in INR Crores, and answer with plain CSV only.`

// shared by the built-in summary prompts; the instructions follow the table
const tablePreamble = `Given the following DataFrame:
{{.Table}}

`

// Builtins returns fresh copies of the prompts shipped with the binary.
func Builtins() []*PromptTemplate {
	return []*PromptTemplate{
		{
			ID:           "summary.profit_loss",
			Name:         "Profit & Loss summary",
			Category:     "summary",
			Description:  "Reduces the Profit & Loss table to revenue, expenses, profit before tax and net profit.",
			SystemPrompt: tableSystemPrompt,
			UserPromptTmpl: tablePreamble + `Using the Profit and Loss Dataframe provided, return only the following as csv ` +
				`(with type of value as row and year as column and every entry as a string), for {{.PeriodList}}: ` +
				`1. Total Revenue 2. Total Expenses 3. Profit Before Tax 4. Net Profit. ` +
				`The first header cell must be "{{.Label}}". Just give me the csv, no code or anything else.`,
			Format:       FormatCSV,
			ExpectedRows: []string{"Total Revenue", "Total Expenses", "Profit Before Tax", "Net Profit"},
			Version:      "1",
		},
		{
			ID:           "summary.balance_sheet",
			Name:         "Balance Sheet summary",
			Category:     "summary",
			Description:  "Reduces the Balance Sheet table to total equity and total assets.",
			SystemPrompt: tableSystemPrompt,
			UserPromptTmpl: tablePreamble + `Using the Balance Sheet Dataframe provided, return only the following as csv ` +
				`(with type of value as row and year as column and every entry as a string), for {{.PeriodList}}: ` +
				`1. Total Equity 2. Total Assets. ` +
				`The first header cell must be "{{.Label}}". Just give me the csv, no code or anything else.`,
			Format:       FormatCSV,
			ExpectedRows: []string{"Total Equity", "Total Assets"},
			Version:      "1",
		},
	}
}
