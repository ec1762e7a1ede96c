package app

import "errors"

var (
	ErrBadCredentials     = errors.New("invalid user name or password")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrHistoryUnavailable = errors.New("session history unavailable")
	ErrUnsupportedFile    = errors.New("unsupported file type")

	ErrNoImage  = errors.New("load a JPG/PNG image first")
	ErrNoVolume = errors.New("no volume loaded")
	ErrNoSignal = errors.New("load a signal first")
	ErrNoTable  = errors.New("load a CSV file first")

	ErrNothingToSave   = errors.New("nothing ready to save")
	ErrNoSelection     = errors.New("select at least one column")
	ErrNothingToExport = errors.New("no charts to export")
	ErrSlotOutOfRange  = errors.New("chart slot out of range")
)
