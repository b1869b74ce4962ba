package logger

import (
	"fmt"
	"log"
	"os"
)

var (
	// Debug flag to control debug logging
	debugEnabled = false
	// The logger instances
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
)

func init() {
	// Default wiring so packages can log before main calls Init.
	Init(false)
}

// Init initializes the logger
func Init(debug bool) {
	debugEnabled = debug

	debugLogger = log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	infoLogger = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime)
	warnLogger = log.New(os.Stdout, "WARN: ", log.Ldate|log.Ltime)
	errorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)

	if debugEnabled {
		Debug("Debug logging enabled")
	}
}

// Debug logs a debug message if debug mode is enabled
func Debug(format string, v ...interface{}) {
	if debugEnabled {
		debugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	infoLogger.Output(2, fmt.Sprintf(format, v...))
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	warnLogger.Output(2, fmt.Sprintf(format, v...))
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	errorLogger.Output(2, fmt.Sprintf(format, v...))
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// Component-prefixed helpers keep the origin of a line visible without
// threading a logger instance through every package.

func component(level *log.Logger, prefix, format string, v ...interface{}) {
	level.Output(3, prefix+" "+fmt.Sprintf(format, v...))
}

// LLMDebug logs a debug message from the chat-completion layer.
func LLMDebug(format string, v ...interface{}) {
	if debugEnabled {
		component(debugLogger, "[llm]", format, v...)
	}
}

// LLMInfo logs an info message from the chat-completion layer.
func LLMInfo(format string, v ...interface{}) {
	component(infoLogger, "[llm]", format, v...)
}

// LLMWarn logs a warning from the chat-completion layer.
func LLMWarn(format string, v ...interface{}) {
	component(warnLogger, "[llm]", format, v...)
}

// LLMError logs an error from the chat-completion layer.
func LLMError(format string, v ...interface{}) {
	component(errorLogger, "[llm]", format, v...)
}

// ToolDebug logs a debug message from tool dispatch.
func ToolDebug(format string, v ...interface{}) {
	if debugEnabled {
		component(debugLogger, "[tool]", format, v...)
	}
}

// ToolInfo logs an info message from tool dispatch.
func ToolInfo(format string, v ...interface{}) {
	component(infoLogger, "[tool]", format, v...)
}

// ToolWarn logs a warning from tool dispatch.
func ToolWarn(format string, v ...interface{}) {
	component(warnLogger, "[tool]", format, v...)
}

// ToolError logs an error from tool dispatch.
func ToolError(format string, v ...interface{}) {
	component(errorLogger, "[tool]", format, v...)
}

// APIInfo logs an info message from the HTTP surface.
func APIInfo(format string, v ...interface{}) {
	component(infoLogger, "[api]", format, v...)
}

// APIError logs an error from the HTTP surface.
func APIError(format string, v ...interface{}) {
	component(errorLogger, "[api]", format, v...)
}

// TelegramDebug logs a debug message from the Telegram connector.
func TelegramDebug(format string, v ...interface{}) {
	if debugEnabled {
		component(debugLogger, "[telegram]", format, v...)
	}
}

// TelegramInfo logs an info message from the Telegram connector.
func TelegramInfo(format string, v ...interface{}) {
	component(infoLogger, "[telegram]", format, v...)
}

// TelegramError logs an error from the Telegram connector.
func TelegramError(format string, v ...interface{}) {
	component(errorLogger, "[telegram]", format, v...)
}
