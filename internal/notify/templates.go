package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var templates = template.Must(template.New("").Parse(`
{{define "license"}}<h2>Your order is complete</h2>
<p>Thank you for purchasing <strong>{{.ProductName}}</strong> ({{.Plan}}).</p>
<p>Order: {{.OrderNumber}}</p>
<p>Your license key:</p>
<pre style="font-size:16px">{{.LicenseKey}}</pre>
{{if .DownloadLink}}<p><a href="{{.DownloadLink}}">Download</a></p>{{end}}
{{if .ActivationProcess}}<p><strong>Activation:</strong> {{.ActivationProcess}}</p>{{end}}{{end}}

{{define "topup"}}<h2>Wallet top-up {{.Status}}</h2>
<p>Your top-up of {{.Amount}} {{.Currency}} was {{.Status}}.</p>
{{if .Credited}}<p>{{.Credited}} USD was added to your balance.</p>{{end}}{{end}}

{{define "reset_requested"}}<h3>User requested a credential reset</h3>
<p>User: {{.UserEmail}}</p>
<p>Product: {{.ProductName}}</p>
<p>Check the admin dashboard.</p>{{end}}

{{define "reset_resolved"}}{{if .Approved}}<p>Your credential reset request has been approved.</p>
<p><strong>Admin note:</strong> {{or .AdminResponse "Done."}}</p>{{else}}<p>Your request was rejected.</p>
<p>Reason: {{or .AdminResponse "No reason provided."}}</p>{{end}}{{end}}
`))

type LicenseData struct {
	ProductName       string
	Plan              string
	OrderNumber       string
	LicenseKey        string
	DownloadLink      string
	ActivationProcess string
}

type TopUpData struct {
	Amount   string
	Currency string
	Status   string
	Credited string
}

type ResetRequestedData struct {
	UserEmail   string
	ProductName string
}

type ResetResolvedData struct {
	Approved      bool
	AdminResponse string
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

func LicenseDelivered(to string, data LicenseData) (Message, error) {
	html, err := render("license", data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Your license key for " + data.ProductName, HTML: html}, nil
}

func TopUpProcessed(to string, data TopUpData) (Message, error) {
	html, err := render("topup", data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Wallet top-up " + data.Status, HTML: html}, nil
}

func ResetRequested(to string, data ResetRequestedData) (Message, error) {
	html, err := render("reset_requested", data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "New credential reset request", HTML: html}, nil
}

func ResetResolved(to string, data ResetResolvedData) (Message, error) {
	html, err := render("reset_resolved", data)
	if err != nil {
		return Message{}, err
	}
	subject := "Request rejected"
	if data.Approved {
		subject = "Credentials reset approved"
	}
	return Message{To: to, Subject: subject, HTML: html}, nil
}
