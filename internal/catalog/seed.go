package catalog

import "time"

// Seed returns the initial rulebook: the four document types and two
// products the review desk launched with. Deployments load it into the
// memory store (or migrate it into postgres) at startup.
func Seed() ([]DocumentType, []Product) {
	v1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	docs := []DocumentType{
		{
			ID:          "dt-id-v1",
			Code:        "ID",
			Name:        "National ID",
			VersionDate: v1,
			Active:      true,
			Fields: []FieldSpec{
				{Name: "idNumber", Label: "ID number", Level: 1},
				{Name: "name", Label: "Full name", Level: 1},
				{Name: "birthDate", Label: "Birth date", Level: 2},
				{Name: "issueDate", Label: "Issue date", Level: 2},
				{Name: "address", Label: "Registered address", Level: 3},
			},
			Rules: []ValidationRule{
				{ID: "r-id-number", Name: "ID number format", Kind: RuleFieldMatches, Field: "idNumber",
					Params: map[string]string{"pattern": `^[A-Z][0-9]{9}$`}, Enabled: true, Required: true},
				{ID: "r-id-name", Name: "Name extracted", Kind: RuleFieldPresent, Field: "name",
					Enabled: true, Required: true},
				{ID: "r-id-birth", Name: "Birth date extracted", Kind: RuleFieldPresent, Field: "birthDate",
					Enabled: true, Required: true},
				{ID: "r-id-issue-fresh", Name: "Issued within ten years", Kind: RuleDateWithinDays, Field: "issueDate",
					Params: map[string]string{"days": "3650"}, Enabled: true, Required: false},
				{ID: "r-id-address", Name: "Address extracted", Kind: RuleFieldPresent, Field: "address",
					Enabled: false, Required: false},
			},
		},
		{
			ID:          "dt-fin-bank-v1",
			Code:        "FIN_BANK",
			Name:        "Bank statement",
			VersionDate: v1,
			Active:      true,
			Fields: []FieldSpec{
				{Name: "accountName", Label: "Account holder", Level: 1},
				{Name: "accountNumber", Label: "Account number", Level: 1},
				{Name: "balance", Label: "Closing balance", Level: 2},
				{Name: "statementDate", Label: "Statement date", Level: 2},
			},
			Rules: []ValidationRule{
				{ID: "r-bank-holder", Name: "Account holder extracted", Kind: RuleFieldPresent, Field: "accountName",
					Enabled: true, Required: true},
				{ID: "r-bank-balance", Name: "Balance non-negative", Kind: RuleNumericMin, Field: "balance",
					Params: map[string]string{"min": "0"}, Enabled: true, Required: true},
				{ID: "r-bank-fresh", Name: "Statement within 90 days", Kind: RuleDateWithinDays, Field: "statementDate",
					Params: map[string]string{"days": "90"}, Enabled: true, Required: false},
			},
		},
		{
			ID:          "dt-fin-income-v1",
			Code:        "FIN_INCOME",
			Name:        "Income proof",
			VersionDate: v1,
			Active:      true,
			Fields: []FieldSpec{
				{Name: "applicantName", Label: "Applicant name", Level: 1},
				{Name: "employerName", Label: "Employer", Level: 2},
				{Name: "monthlyIncome", Label: "Monthly income", Level: 2},
				{Name: "payDate", Label: "Pay date", Level: 2},
			},
			Rules: []ValidationRule{
				{ID: "r-income-name", Name: "Applicant name extracted", Kind: RuleFieldPresent, Field: "applicantName",
					Enabled: true, Required: true},
				{ID: "r-income-min", Name: "Monthly income above floor", Kind: RuleNumericMin, Field: "monthlyIncome",
					Params: map[string]string{"min": "25000"}, Enabled: true, Required: false},
				{ID: "r-income-fresh", Name: "Pay slip within 60 days", Kind: RuleDateWithinDays, Field: "payDate",
					Params: map[string]string{"days": "60"}, Enabled: true, Required: true},
			},
		},
		{
			ID:          "dt-emp-v1",
			Code:        "EMP",
			Name:        "Employment certificate",
			VersionDate: v1,
			Active:      true,
			Fields: []FieldSpec{
				{Name: "employerName", Label: "Employer", Level: 2},
				{Name: "jobTitle", Label: "Job title", Level: 2},
				{Name: "hireDate", Label: "Hire date", Level: 2},
			},
			Rules: []ValidationRule{
				{ID: "r-emp-employer", Name: "Employer extracted", Kind: RuleFieldPresent, Field: "employerName",
					Enabled: true, Required: true},
				{ID: "r-emp-title", Name: "Job title extracted", Kind: RuleFieldPresent, Field: "jobTitle",
					Enabled: true, Required: false},
			},
		},
	}

	products := []Product{
		{
			ID:           "prod-cc001",
			Code:         "CC001",
			Name:         "Standard credit card",
			Kind:         "credit_card",
			Active:       true,
			RequiredDocs: []string{"ID", "FIN_INCOME"},
			OptionalDocs: []string{"FIN_BANK", "EMP"},
			CrossRules: []ValidationRule{
				{ID: "x-cc-name", Name: "Applicant name consistent", Kind: RuleFieldsConsistent,
					Fields: []string{"ID.name", "FIN_INCOME.applicantName"}, Enabled: true, Required: true},
				{ID: "x-cc-employer", Name: "Employer consistent", Kind: RuleFieldsConsistent,
					Fields: []string{"FIN_INCOME.employerName", "EMP.employerName"}, Enabled: true, Required: false},
			},
		},
		{
			ID:           "prod-pl001",
			Code:         "PL001",
			Name:         "Personal loan",
			Kind:         "personal_loan",
			Active:       true,
			RequiredDocs: []string{"ID", "FIN_INCOME", "FIN_BANK"},
			OptionalDocs: []string{"EMP"},
			CrossRules: []ValidationRule{
				{ID: "x-pl-name", Name: "Applicant name consistent", Kind: RuleFieldsConsistent,
					Fields: []string{"ID.name", "FIN_INCOME.applicantName", "FIN_BANK.accountName"},
					Enabled: true, Required: true},
			},
		},
	}

	return docs, products
}
