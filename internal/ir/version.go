package ir

// Version is the edunews release version, reported by edunews --version.
const Version = "0.1.0"
