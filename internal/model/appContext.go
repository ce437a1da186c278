package model

type contextKey string

const (
	ContextAppName    contextKey = "appName"
	ContextAppVersion contextKey = "appVersion"
	ContextConfig     contextKey = "config"
	ContextConfigFile contextKey = "configFile"
	ContextLogger     contextKey = "logger"
)
