package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"serial-monitor-examples/internal/config"
	"serial-monitor-examples/internal/students"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(lvl)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	if err := students.Run(context.Background(), cfg, os.Stdout); err != nil {
		logrus.Fatal(err)
	}
}
