// Package render turns an appraisal record into a single-page certificate.
//
// Build produces a Document from a record without touching any I/O.
// WriteHTML serializes a Document through html/template, so every
// user-supplied field is emitted as literal text. Printer and Exporter are
// the two delivery paths: a platform print command and a blob store.
package render

import (
	"time"

	"github.com/mitchellmoss/appraisal-generator/internal/total"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// Mode selects the delivery path a document is built for.
type Mode string

// Delivery modes.
const (
	ModePrint  Mode = "print"
	ModeExport Mode = "export"
)

// Fixed certificate text.
const (
	Title             = "APPRAISAL"
	Certification     = "We herewith certify that we have this day carefully examined the following listed and described articles, the property of:"
	ArticlesHeading   = "DESCRIPTION OF ARTICLE"
	ValueLabel        = "Appraised Value:"
	Footer            = "OFFICIAL JEWELRY APPRAISAL"
	DefaultAppraiser  = "Appraiser"
	DefaultTotal      = "$0.00"
	appraisalDateForm = "2006-01-02"
	displayDateForm   = "January 2, 2006"
)

// Disclaimer is printed under the signature block, one sentence per entry.
var Disclaimer = []string{
	"We estimate the Value as listed for Insurance or other purposes at the Current Retail Value, excluding Federal and other taxes.",
	"In making this Appraisal, we DO NOT agree to purchase or replace the article(s) listed above.",
	"The foregoing Appraisal is made with the understanding that the Appraiser assumes no liability with the respect to any action that may be taken on the basis of this Appraisal.",
}

// Business is the letterhead.
type Business struct {
	Mark    string `json:"mark"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Letterhead is the business printed on every certificate.
var Letterhead = Business{
	Mark:    "D",
	Name:    "Debbie Noble Designs",
	Address: "333 Washington Street, Boston MA 02108",
	Phone:   "(508)380-2661",
}

// Client is the owner block.
type Client struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
}

// Article is one described item on the certificate.
type Article struct {
	Number         int    `json:"number"`
	Description    string `json:"description"`
	AppraisedValue string `json:"appraisedValue,omitempty"`
}

// Document is the structured certificate. It carries no markup.
type Document struct {
	Mode          Mode      `json:"mode"`
	Title         string    `json:"title"`
	Business      Business  `json:"business"`
	Certification string    `json:"certification"`
	Client        Client    `json:"client"`
	Date          string    `json:"date"`
	Heading       string    `json:"heading"`
	Articles      []Article `json:"articles"`
	Total         string    `json:"total"`
	Appraiser     string    `json:"appraiser"`
	Disclaimer    []string  `json:"disclaimer"`
	Footer        string    `json:"footer"`
	Layout        Layout    `json:"layout"`
	GeneratedAt   time.Time `json:"generatedAt,omitzero"`
}

// Build maps rec to a Document. Every line item appears once, in order,
// including blank ones, which render as empty article blocks.
func Build(rec types.AppraisalRecord, mode Mode) Document {
	articles := make([]Article, len(rec.Articles))
	for i, a := range rec.Articles {
		articles[i] = Article{
			Number:         i + 1,
			Description:    a.Description,
			AppraisedValue: a.AppraisedValue,
		}
	}

	appraiser := rec.AppraiserName
	if appraiser == "" {
		appraiser = DefaultAppraiser
	}

	return Document{
		Mode:          mode,
		Title:         Title,
		Business:      Letterhead,
		Certification: Certification,
		Client: Client{
			Name:     rec.ClientName,
			Address1: rec.Address1,
			Address2: rec.Address2,
		},
		Date:        FormatDate(rec.AppraisalDate),
		Heading:     ArticlesHeading,
		Articles:    articles,
		Total:       documentTotal(rec),
		Appraiser:   appraiser,
		Disclaimer:  append([]string(nil), Disclaimer...),
		Footer:      Footer,
		Layout:      LayoutFor(len(rec.Articles)),
		GeneratedAt: rec.GeneratedAt,
	}
}

func documentTotal(rec types.AppraisalRecord) string {
	if v := total.Calculate(rec.Articles); v != "" {
		return v
	}
	if rec.AppraisedValue != "" {
		return rec.AppraisedValue
	}
	return DefaultTotal
}

// FormatDate renders a YYYY-MM-DD date as "January 2, 2006". Anything
// else is returned unchanged.
func FormatDate(s string) string {
	t, err := time.Parse(appraisalDateForm, s)
	if err != nil {
		return s
	}
	return t.Format(displayDateForm)
}
