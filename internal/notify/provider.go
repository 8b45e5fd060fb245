package notify

import "strings"

type Provider string

const (
	ProviderGmail   Provider = "Gmail"
	ProviderOutlook Provider = "Outlook"
	ProviderYahoo   Provider = "Yahoo"
	ProviderCustom  Provider = "Custom"
)

const submissionPort = 587

// DetectProvider picks the mail provider from the sender address domain.
func DetectProvider(email string) Provider {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ProviderCustom
	}
	domain := strings.ToLower(email[at+1:])
	switch {
	case strings.Contains(domain, "gmail.com"):
		return ProviderGmail
	case strings.Contains(domain, "outlook.com"), strings.Contains(domain, "hotmail.com"):
		return ProviderOutlook
	case strings.Contains(domain, "yahoo.com"):
		return ProviderYahoo
	default:
		return ProviderCustom
	}
}

// ParseProvider accepts a stored provider name. Unknown names and "auto"
// return false.
func ParseProvider(name string) (Provider, bool) {
	for _, p := range []Provider{ProviderGmail, ProviderOutlook, ProviderYahoo, ProviderCustom} {
		if strings.EqualFold(name, string(p)) {
			return p, true
		}
	}
	return "", false
}

// Server returns the submission endpoint for the provider. Custom uses the
// configured host and port.
func (p Provider) Server(host string, port int) (string, int) {
	switch p {
	case ProviderGmail:
		return "smtp.gmail.com", submissionPort
	case ProviderOutlook:
		return "smtp-mail.outlook.com", submissionPort
	case ProviderYahoo:
		return "smtp.mail.yahoo.com", submissionPort
	default:
		return host, port
	}
}
