package ui

// Reporter receives progress events from the update detector and the site
// builder. Implementations must be safe for concurrent use.
type Reporter interface {
	// StartRun announces how many creators will be checked.
	StartRun(total int)
	StartCreator(uid string)
	// CompleteCreator records a checked creator and whether it changed.
	CompleteCreator(uid, name string, updated bool)
	FailCreator(uid string, err error)
	// FinishRun reports the creators whose pages were rebuilt.
	FinishRun(built []string)
	LogInfo(format string, args ...interface{})
	LogSuccess(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) StartRun(int)                         {}
func (NopReporter) StartCreator(string)                  {}
func (NopReporter) CompleteCreator(string, string, bool) {}
func (NopReporter) FailCreator(string, error)            {}
func (NopReporter) FinishRun([]string)                   {}
func (NopReporter) LogInfo(string, ...interface{})       {}
func (NopReporter) LogSuccess(string, ...interface{})    {}
func (NopReporter) LogWarning(string, ...interface{})    {}
func (NopReporter) LogError(string, ...interface{})      {}
