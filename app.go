package ssrshim

import "errors"

// App holds process-level resources initialized at startup and released on
// shutdown, such as the render sidecar.
type App struct {
	Log     *Logger
	closers []func() error
}

// NewApp creates an App that logs through log.
func NewApp(log *Logger) *App {
	if log == nil {
		log = NewLogger()
	}
	return &App{Log: log}
}

// OnClose registers fn to run when the App is closed. Closers run in reverse
// registration order.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close shuts down the application, running every registered closer.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
