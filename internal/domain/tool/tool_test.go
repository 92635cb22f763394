package tool

import (
	"math"
	"testing"
)

func ptr(f float64) *float64 { return &f }

func TestBuildDeepLink(t *testing.T) {
	tests := []struct {
		name string
		link DeepLink
		want string
	}{
		{"transfer with amount and currency", DeepLink{Action: ActionTransfer, Amount: ptr(100), Currency: "CHF"}, "yuh://transfer?amount=100&currency=CHF"},
		{"connect without params", DeepLink{Action: ActionConnect}, "yuh://connect"},
		{"amount only", DeepLink{Action: ActionTransfer, Amount: ptr(12.5)}, "yuh://transfer?amount=12.5"},
		{"currency only", DeepLink{Action: ActionPortfolio, Currency: "USD"}, "yuh://portfolio?currency=USD"},
		{"zero amount is kept", DeepLink{Action: ActionTransfer, Amount: ptr(0)}, "yuh://transfer?amount=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildDeepLink(DefaultScheme, tt.link); got != tt.want {
				t.Errorf("BuildDeepLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildDeepLinkCustomScheme(t *testing.T) {
	got := BuildDeepLink("scheme", DeepLink{Action: ActionTransfer, Amount: ptr(100), Currency: "CHF"})
	if got != "scheme://transfer?amount=100&currency=CHF" {
		t.Fatalf("unexpected link %q", got)
	}
	if got := BuildDeepLink("", DeepLink{Action: ActionConnect}); got != "yuh://connect" {
		t.Fatalf("expected default scheme, got %q", got)
	}
}

func TestRegistryValidation(t *testing.T) {
	r := DefaultRegistry()

	yuh, ok := r.Lookup(IDYuhConnector)
	if !ok {
		t.Fatal("yuh-connector not registered")
	}
	if err := yuh.Validate(Params{Action: ActionConnect}); err != nil {
		t.Errorf("connect should be valid: %v", err)
	}
	if err := yuh.Validate(Params{}); err == nil {
		t.Error("expected error for missing action")
	}
	if err := yuh.Validate(Params{Action: "withdraw"}); err == nil {
		t.Error("expected error for unknown action")
	}

	fee, ok := r.Lookup(IDFeeCalculator)
	if !ok {
		t.Fatal("fee-calculator not registered")
	}
	if err := fee.Validate(Params{}); err != nil {
		t.Errorf("fee-calculator has no required fields: %v", err)
	}

	if _, ok := r.Lookup("crypto-bridge"); ok {
		t.Error("unknown tool should not resolve")
	}
	if ids := r.IDs(); len(ids) != 2 || ids[0] != IDFeeCalculator {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestFees(t *testing.T) {
	tests := []struct {
		amount    float64
		yuh, bank float64
		yuhLabel  string
		bankLabel string
	}{
		{0, 1, 15, "CHF 1.00", "CHF 15.00"},
		{25, 1, 15.5, "CHF 1.00", "CHF 15.50"},
		{1000, 9.5, 35, "CHF 9.50", "CHF 35.00"},
	}

	for _, tt := range tests {
		c := CompareFees(tt.amount)
		if math.Abs(c.YuhFee-tt.yuh) > 1e-9 {
			t.Errorf("YuhFee(%v) = %v, want %v", tt.amount, c.YuhFee, tt.yuh)
		}
		if math.Abs(c.ReferenceFee-tt.bank) > 1e-9 {
			t.Errorf("ReferenceFee(%v) = %v, want %v", tt.amount, c.ReferenceFee, tt.bank)
		}
		if c.YuhLabel != tt.yuhLabel || c.ReferenceLabel != tt.bankLabel {
			t.Errorf("labels = %q / %q", c.YuhLabel, c.ReferenceLabel)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]float64{
		"CHF 250":   250,
		"1'000.50":  1000.5,
		"":          0,
		"no digits": 0,
	}
	for in, want := range tests {
		if got := ParseAmount(in); got != want {
			t.Errorf("ParseAmount(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLookupAsset(t *testing.T) {
	tests := []struct {
		query  string
		symbol string
		found  bool
	}{
		{"CH0038863350", "NESN", true},
		{" ch0038863350 ", "NESN", true},
		{"aapl", "AAPL", true},
		{"Nestle", "NESN", true},
		{"Nestlé SA", "NESN", true},
		{"S&P 500", "SPY", true},
		{"bitcoin", "BTC", true},
		{"Tesla", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			a, ok := LookupAsset(tt.query)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if ok && a.Symbol != tt.symbol {
				t.Errorf("symbol = %s, want %s", a.Symbol, tt.symbol)
			}
		})
	}
}

func TestIsLikelyISIN(t *testing.T) {
	if !IsLikelyISIN("US0378331005") {
		t.Error("expected Apple ISIN to match")
	}
	if !IsLikelyISIN("ch0012032048") {
		t.Error("expected lower-case ISIN to match")
	}
	if IsLikelyISIN("AAPL") {
		t.Error("ticker should not look like an ISIN")
	}
}
