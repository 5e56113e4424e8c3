package model

// BusinessConfig is the singleton business-identity record (row id=1).
type BusinessConfig struct {
	Name     string           `json:"name"`
	Phone    string           `json:"phone"`
	Email    string           `json:"email"`
	Address  string           `json:"address"`
	Hours    BusinessHours    `json:"hours"`
	Policies BusinessPolicies `json:"policies"`
}

type BusinessHours struct {
	MonFri string `json:"mon_fri"`
	Sat    string `json:"sat"`
	Sun    string `json:"sun"`
}

type BusinessPolicies struct {
	Cancellation string `json:"cancellation"`
	Late         string `json:"late"`
}
