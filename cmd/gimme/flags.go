package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose = "verbose"
	FlagConfig  = "config"
	FlagLogFile = "log-file"

	// Practice command flags
	FlagBPM              = "bpm"
	FlagPattern          = "pattern"
	FlagMeasuresPerChord = "measures-per-chord"
	FlagRestMeasures     = "rest-measures"
	FlagAttempts         = "attempts"
	FlagLeadIn           = "lead-in"
	FlagMuted            = "muted"
	FlagAudio            = "audio"
	FlagMIDIPort         = "midi-port"
	FlagSeed             = "seed"
	FlagTUI              = "tui"

	// Config init flags
	FlagPath   = "path"
	FlagGlobal = "global"
	FlagForce  = "force"
)
