// Package coach renders the deterministic asset coach: the Swiss wealth
// analysis shown by AI-coach tasks and the tool-driven agent loop.
package coach

import (
	"fmt"
	"strings"

	"github.com/zasterix/zasterix/internal/domain/tool"
)

// DefaultAmountCHF is used when a run has no positive amount.
const DefaultAmountCHF = 1000

const defaultBasePrompt = "Provide a Swiss wealth engineering assessment with risk posture, diversification fit, and fee sensitivity."

// ToolSystemPrompt describes the tools available to the agent loop.
var ToolSystemPrompt = strings.Join([]string{
	"Tools Available:",
	"- Tool [IsinLookup]: Use this to get the Name, Symbol, and Asset-Type from an ISIN or Name.",
	"- Tool [FeeCalc]: Use this to calculate the 0.95% Yuh fee for a given CHF amount.",
	"- Tool [YuhLinker]: Use this to generate the final deep-link for the transaction.",
	"",
	"Agentic Loop:",
	"1. Thought: Identify missing information.",
	"2. Action: Call a required Tool from /shared/tools/.",
	"3. Observation: Process data returned by the tool.",
	"4. Final Response: Produce a professional Wealth Engineer recommendation.",
}, "\n")

// AssetLabel returns the trimmed input, or "the asset" when blank.
func AssetLabel(input string) string {
	if s := strings.TrimSpace(input); s != "" {
		return s
	}
	return "the asset"
}

// Analysis returns the four-paragraph Swiss wealth analysis for input.
func Analysis(input string) string {
	label := AssetLabel(input)
	return strings.Join([]string{
		fmt.Sprintf("Assessment for %s: This asset is evaluated through a Swiss wealth engineering lens with focus on capital preservation, liquidity discipline, and strategic diversification.", label),
		"Risk posture: Validate volatility, drawdown history, and correlation against CHF-denominated benchmarks. Stress-test for macro rate shifts and franc strength.",
		"Portfolio fit: Target balance across liquid core, growth satellites, and defensive hedges. Avoid concentration risk above policy limits.",
		"Fee alert: A 0.95% advisory fee materially impacts compounding over time. Confirm expected net return exceeds fee drag before allocation.",
	}, "\n\n")
}

// HardContext states the looked-up asset facts, or that none were found.
func HardContext(a tool.Asset, found bool) string {
	if !found {
		return "Hard Context: Asset lookup not found. Treat as unknown."
	}
	return fmt.Sprintf("Hard Context: %s (%s) is a %s in %s.", a.Name, a.Symbol, a.Type, a.Currency)
}

// BuildPrompt assembles the agent prompt from the tool description, the
// looked-up asset and the optional base prompt.
func BuildPrompt(input, basePrompt string) string {
	label := AssetLabel(input)
	asset, found := tool.LookupAsset(label)

	base := strings.TrimSpace(basePrompt)
	if base == "" {
		base = defaultBasePrompt
	}
	return strings.Join([]string{
		ToolSystemPrompt,
		"",
		HardContext(asset, found),
		fmt.Sprintf("User input: %s.", label),
		base,
	}, "\n\n")
}
