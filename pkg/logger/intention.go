package logger

// Intention represents the semantic intent of a log line, orthogonal to level.
// The console handler maps intentions to short icons; file logs keep the
// structured attribute only.
type Intention string

const (
	IntentionDispatch   Intention = "dispatch"
	IntentionBudget     Intention = "budget"
	IntentionTool       Intention = "tool"
	IntentionStatistics Intention = "statistics"
	IntentionStatus     Intention = "status"
	IntentionStream     Intention = "stream"
	IntentionCancel     Intention = "cancel"
	IntentionDebug      Intention = "debug"
	IntentionConfig     Intention = "config"
)

// iconFor returns a short icon string for console output for the intention.
func iconFor(i Intention) string {
	switch i {
	case IntentionDispatch:
		return "→"
	case IntentionBudget:
		return "⚖"
	case IntentionTool:
		return "🔧"
	case IntentionStatistics:
		return "📊"
	case IntentionStatus:
		return "ℹ"
	case IntentionStream:
		return "↳"
	case IntentionCancel:
		return "🛑"
	case IntentionDebug:
		return "·"
	case IntentionConfig:
		return "⚙"
	default:
		return "➤"
	}
}
