package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"

	"serial-monitor-examples/internal/monitor"
	"serial-monitor-examples/internal/serialport"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	a := app.NewWithID("com.github.craigs.serial-monitor")
	w := a.NewWindow("Serial Monitor")
	w.Resize(fyne.NewSize(700, 400))

	ctrl := monitor.NewController(monitor.ControllerConfig{
		Worker: serialport.Config{
			BaudRate:    serialport.DefaultBaudRate,
			ReadTimeout: serialport.DefaultReadTimeout,
		},
		Dispatch: fyne.Do,
		Logger:   logrus.WithField("app", "serialmonitor"),
	})
	monitor.NewWindow(w, ctrl)

	w.ShowAndRun()
}
