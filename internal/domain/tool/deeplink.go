package tool

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultScheme is the URL scheme of the Yuh app.
const DefaultScheme = "yuh"

// DeepLink describes a link into the Yuh app.
type DeepLink struct {
	Action   Action   `json:"action"`
	Amount   *float64 `json:"amount,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// BuildDeepLink renders scheme://action with amount and currency as query
// parameters. Missing parameters are omitted, and so is the "?" when the
// query is empty.
func BuildDeepLink(scheme string, l DeepLink) string {
	if scheme == "" {
		scheme = DefaultScheme
	}

	var q []string
	if l.Amount != nil {
		q = append(q, "amount="+url.QueryEscape(strconv.FormatFloat(*l.Amount, 'f', -1, 64)))
	}
	if l.Currency != "" {
		q = append(q, "currency="+url.QueryEscape(l.Currency))
	}

	link := scheme + "://" + string(l.Action)
	if len(q) > 0 {
		link += "?" + strings.Join(q, "&")
	}
	return link
}
