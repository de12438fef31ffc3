package mail

type SaleEmailData struct {
	BotName   string
	Customer  string
	Username  string
	PlanName  string
	Price     string
	ExpiresAt string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}
