package domain

// PushSubscription is a browser push destination, keyed by Keys.Auth.
type PushSubscription struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}

type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// EmailSubscription is keyed by Email.
type EmailSubscription struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// WhatsappSubscription is keyed by Phone (wa.me link prefix stripped).
type WhatsappSubscription struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
