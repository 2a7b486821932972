package domain

// PushMessage is the payload accepted by the push channel.
type PushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
}

// EmailTemplateData parameterizes one rendered email for one recipient.
type EmailTemplateData struct {
	ToPersonName   string `json:"toPersonName"`
	ToEmail        string `json:"toEmail"`
	EmailSubject   string `json:"emailSubject"`
	ContentTitle   string `json:"contentTitle"`
	ContentImage   string `json:"contentImage"`
	ContentURL     string `json:"contentUrl"`
	UnsubscribeURL string `json:"unsubscribeUrl"`
}

// MessagePayload is the asset+text body shared by whatsapp and social posts.
type MessagePayload struct {
	Asset string `json:"asset,omitempty"`
	Text  string `json:"text"`
}

// WhatsappMessage targets a single phone number.
type WhatsappMessage struct {
	To   string         `json:"to"`
	Data MessagePayload `json:"data"`
}

// SocialPost is one post for the configured social page.
type SocialPost struct {
	Data MessagePayload `json:"data"`
}
