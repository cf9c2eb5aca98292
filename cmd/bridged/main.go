package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/bridge.go/pkg/env"
	fx "github.com/robotalks/bridge.go/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := env.NewConfig().MustNewEnv()
	if err := fx.NewRunner().HandleSignals().Go(e).Wait(); err != nil {
		glog.Exit(err)
	}
}
