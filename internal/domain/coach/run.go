package coach

import (
	"fmt"
	"strings"

	"github.com/zasterix/zasterix/internal/domain/guard"
	"github.com/zasterix/zasterix/internal/domain/tool"
)

// Request is the input of one agent loop run.
type Request struct {
	Input      string  `json:"input"`
	AmountCHF  float64 `json:"amount"`
	BasePrompt string  `json:"prompt,omitempty"`
}

// Result is the outcome of one run. Steps are emitted in order; Response has
// passed through the output guard.
type Result struct {
	Label    string             `json:"label"`
	Asset    *tool.Asset        `json:"asset"`
	Fees     tool.FeeComparison `json:"fees"`
	DeepLink string             `json:"deep_link"`
	Steps    []string           `json:"steps"`
	Response string             `json:"response"`
	Prompt   string             `json:"prompt"`
	History  HistoryRecord      `json:"-"`
}

// HistoryRecord is the asset history row stored for a run.
type HistoryRecord struct {
	ISIN      string
	AssetName string
	Amount    float64
	Fee       float64
	Currency  string
}

// Run executes the tool loop deterministically. Each step is passed to emit
// as it is produced; emit may be nil.
func Run(req Request, scheme string, emit func(step string)) Result {
	label := AssetLabel(req.Input)
	amount := req.AmountCHF
	if amount <= 0 {
		amount = DefaultAmountCHF
	}

	res := Result{Label: label, Prompt: BuildPrompt(req.Input, req.BasePrompt)}
	step := func(format string, args ...any) {
		s := fmt.Sprintf(format, args...)
		res.Steps = append(res.Steps, s)
		if emit != nil {
			emit(s)
		}
	}

	step("> [THOUGHT]: Analyzing user input for asset identification...")
	step("> [TOOL_CALL]: Accessing IsinAnalyzer for \"%s\"...", label)

	asset, found := tool.LookupAsset(label)
	isISIN := tool.IsLikelyISIN(label)
	if found {
		res.Asset = &asset
		match := asset.Symbol
		if isISIN {
			match = strings.ToUpper(label)
		}
		step("> [OBSERVATION]: Match found: %s. Asset type: %s.", match, asset.Type)
	} else {
		step("> [OBSERVATION]: No match found. Asset type: Unknown.")
	}

	step("> [TOOL_CALL]: Accessing FeeCalculator for %s CHF...", formatAmount(amount))
	res.Fees = tool.CompareFees(amount)
	step("> [OBSERVATION]: Yuh fee %s vs Reference %s.", res.Fees.YuhLabel, res.Fees.ReferenceLabel)

	step("> [TOOL_CALL]: Generating YuhLinker deep-link...")
	res.DeepLink = tool.BuildDeepLink(scheme, tool.DeepLink{Action: tool.ActionConnect})
	step("> [OBSERVATION]: Link ready (%s).", res.DeepLink)

	step("> [FINAL]: Generating wealth engineering recommendation...")

	closing := "Assessment calibrated to Swiss wealth engineering standards."
	if bp := strings.TrimSpace(req.BasePrompt); bp != "" {
		closing = "Additional Prompt Context: " + bp
	}
	res.Response = guard.ApplyOutputGuard(strings.Join([]string{
		HardContext(asset, found),
		fmt.Sprintf("Wealth Engineer Recommendation: %s should be assessed with CHF liquidity resilience, correlation against core holdings, and fee drag sensitivity.", label),
		fmt.Sprintf("Fee insight: Yuh fee on %s is %s; a reference bank would charge %s.", tool.FormatCHF(amount), res.Fees.YuhLabel, res.Fees.ReferenceLabel),
		"Execution readiness: " + res.DeepLink,
		closing,
		"Analysis based on live tool-data.",
	}, "\n\n"))

	res.History = historyRecord(label, isISIN, asset, found, amount, res.Fees.YuhFee)
	return res
}

func historyRecord(label string, isISIN bool, a tool.Asset, found bool, amount, fee float64) HistoryRecord {
	h := HistoryRecord{ISIN: label, AssetName: label, Amount: amount, Fee: fee, Currency: "CHF"}
	switch {
	case isISIN:
		h.ISIN = strings.ToUpper(label)
	case found && a.Symbol != "":
		h.ISIN = a.Symbol
	}
	if found {
		h.AssetName = a.Name
		if a.Currency != "" {
			h.Currency = a.Currency
		}
	}
	return h
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
