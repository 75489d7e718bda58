package config

import "errors"

// Loader errors
var (
	ErrEmptyFilePath              = errors.New("configuration file path is empty")
	ErrFileNotFound               = errors.New("configuration file not found")
	ErrEmptyFile                  = errors.New("configuration file is empty")
	ErrUnreadable                 = errors.New("unable to read configuration file")
	ErrInvalidJSON                = errors.New("unable to parse configuration file")
	ErrParentNotFound             = errors.New("parent configuration file not found")
	ErrParentCircularReference    = errors.New("parent circular reference")
	ErrExternalTasksWrongLocation = errors.New("external tasks location is outside of the configuration directory")
)
