package main

import (
	"github.com/RocketMan-System/rocketman-service/internal/cli"
	"github.com/RocketMan-System/rocketman-service/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
