package core

// Built-in import templates. Labels are the column headers uploaders must use.

func init() {
	Register(EntityTemplate{
		Entity: EntityCompanies,
		Label:  "Companies",
		Columns: []TemplateColumn{
			{Field: "companyNameEn", Label: "Company Name (English)", Required: true, Example: "Acme Corporation Ltd.", Description: "Registered company name in English"},
			{Field: "companyNameTh", Label: "Company Name (Thai)", Example: "บริษัท แอคมี คอร์ปอเรชั่น จำกัด", Description: "Registered company name in Thai"},
			{Field: "registrationId", Label: "Registration ID", Example: "0105561234567", Description: "13-digit DBD registration number"},
			{Field: "industry", Label: "Industry", Example: "Manufacturing"},
			{Field: "province", Label: "Province", Example: "Bangkok"},
			{Field: "website", Label: "Website", Example: "https://www.acme.co.th", Description: "Full URL including http:// or https://"},
			{Field: "linkedinUrl", Label: "LinkedIn", Example: "https://www.linkedin.com/company/acme"},
			{Field: "email", Label: "Email", Example: "info@acme.co.th"},
			{Field: "phone", Label: "Phone", Example: "+66 2 123 4567"},
			{Field: "employeeCount", Label: "Employee Count", Example: "250", Description: "Number of employees (numbers only)"},
			{Field: "annualRevenue", Label: "Annual Revenue", Example: "150000000", Description: "Annual revenue in THB (numbers only)"},
			{Field: "description", Label: "Description", Example: "Industrial equipment manufacturer"},
		},
	})

	Register(EntityTemplate{
		Entity: EntityContacts,
		Label:  "Contacts",
		Columns: []TemplateColumn{
			{Field: "firstName", Label: "First Name", Required: true, Example: "Somchai"},
			{Field: "lastName", Label: "Last Name", Required: true, Example: "Jaidee"},
			{Field: "email", Label: "Email", Example: "somchai@acme.co.th"},
			{Field: "phone", Label: "Phone", Example: "081-234-5678"},
			{Field: "title", Label: "Title", Example: "Purchasing Manager"},
			{Field: "department", Label: "Department", Example: "Procurement"},
			{Field: "companyName", Label: "Company Name", Example: "Acme Corporation Ltd.", Description: "Company the contact works for"},
		},
	})

	Register(EntityTemplate{
		Entity: EntityActivities,
		Label:  "Activities",
		Columns: []TemplateColumn{
			{Field: "activityType", Label: "Activity Type", Required: true, Example: "meeting", Description: "call, email, meeting or note"},
			{Field: "subject", Label: "Subject", Required: true, Example: "Quarterly review"},
			{Field: "date", Label: "Date", Required: true, Example: "2024-01-15", Description: "YYYY-MM-DD or another common date format"},
			{Field: "companyName", Label: "Company Name", Example: "Acme Corporation Ltd."},
			{Field: "contactEmail", Label: "Contact Email", Example: "somchai@acme.co.th"},
			{Field: "notes", Label: "Notes", Example: "Discussed renewal terms"},
		},
	})
}
