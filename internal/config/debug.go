package config

import "os"

func IsDebug() bool {
	return os.Getenv("GOVORUN_DEBUG") == "1"
}
