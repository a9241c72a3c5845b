package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the gateway.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// Log emits one JSON object per line. Callers pass "msg" plus whatever
// context they have (partner, module, resource id).
func Log(entry map[string]any) {
	if _, ok := entry["level"]; !ok {
		entry["level"] = "info"
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}

// Error is Log with level=error.
func Error(msg string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["msg"] = msg
	fields["level"] = "error"
	Log(fields)
}
