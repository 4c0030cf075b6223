package i

// Logger is the leveled line logger every service writes to.
type Logger interface {
	Info(string)
	Warning(string)
	Error(string)
}
