package main

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"feedsync/api"
	"feedsync/config"
	"feedsync/feed"
	"feedsync/storage"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load()
	if err != nil {
		glog.Fatalf("config: %v", err)
	}

	store := storage.New()
	if err := store.Seed(context.Background()); err != nil {
		glog.Warningf("seed: %v", err)
	}
	engine := feed.NewEngine(store, cfg.Feed.DefaultPageSize, cfg.Feed.MaxPageSize)

	srv := api.MakeServer(store, engine, cfg)
	glog.Infof("feedsync listening on %s", srv.Addr)
	glog.Fatal(srv.ListenAndServe())
}
