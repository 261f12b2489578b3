package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"

	"valleyswaths/pkg/axis"
	"valleyswaths/pkg/cfg"
	"valleyswaths/pkg/edit"
	"valleyswaths/pkg/pool"
	"valleyswaths/pkg/swath"
	"valleyswaths/pkg/tileset"
	"valleyswaths/pkg/vectorize"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] discretize|vectorize|update\n", os.Args[0])
	flag.PrintDefaults()
}

// progress prints a counter line for stage on stderr.
func progress(stage string) pool.Progress {
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "\r%s: %d/%d", stage, done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

type run struct {
	conf cfg.Config
	env  swath.Context
	pool *pool.Pool
	axis uint32
}

func main() {
	configPath := flag.String("config", "valleyswaths.yml", "configuration file")
	workers := flag.Int("workers", -1, "number of workers, overrides the configuration")
	axisID := flag.Uint("axis", 0, "axis to vectorize or update; 0 vectorizes every axis")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	conf, err := cfg.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %s", err)
	}
	if *workers >= 0 {
		conf.Workers = *workers
	}
	logger, err := conf.Logger(os.Stderr)
	if err != nil {
		log.Fatalf("config error: %s", err)
	}
	env, err := conf.Context(logger)
	if err != nil {
		log.Fatalf("config error: %s", err)
	}
	r := &run{conf: conf, env: env, pool: pool.New(conf.Workers), axis: uint32(*axisID)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	stage := flag.Arg(0)
	switch stage {
	case "discretize":
		err = r.discretize(ctx)
	case "vectorize":
		err = r.vectorize(ctx)
	case "update":
		err = r.update(ctx)
	default:
		stop()
		usage()
		os.Exit(2)
	}
	stop()
	if err != nil {
		log.Fatalf("%s error: %s", stage, err)
	}
}

func (r *run) datasets() swath.Datasets {
	return r.conf.Swath.Datasets
}

func missing(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", swath.ErrMissingInput, err)
	}
	return err
}

func (r *run) discretize(ctx context.Context) error {
	refPath, err := r.env.Resolver.Path(r.datasets().Reference, nil)
	if err != nil {
		return err
	}
	network, err := axis.Load(refPath, axis.LoadOptions{FromEnd: r.conf.Swath.MeasureFromEnd})
	if err != nil {
		return missing(err)
	}
	d, err := swath.NewDiscretizer(r.env, network, r.conf.DiscretizeOptions())
	if err != nil {
		return err
	}
	attrs, _, err := d.Discretize(ctx, r.pool, progress("discretize"))
	if err != nil {
		return err
	}

	table := swath.NewTable(attrs, r.conf.Swath.MDelta, r.datasets().Mask, r.datasets().Reference)
	tablePath, err := r.env.Resolver.Path(r.datasets().Table, nil)
	if err != nil {
		return err
	}
	if err := swath.SaveTable(tablePath, table); err != nil {
		return err
	}
	r.env.Logger.Info("swath table written",
		"path", tablePath,
		"swaths", len(table.Entries),
		"run_id", table.RunID.String())
	return nil
}

func (r *run) polygonsPath() (string, error) {
	return r.env.Resolver.Path(r.datasets().Polygons, tileset.Params{"axis": r.axis})
}

func (r *run) vectorize(ctx context.Context) error {
	tablePath, err := r.env.Resolver.Path(r.datasets().Table, nil)
	if err != nil {
		return err
	}
	table, err := swath.LoadTable(tablePath)
	if err != nil {
		return err
	}
	v := vectorize.NewVectorizer(r.env, r.conf.VectorizeOptions())
	features, _, err := v.VectorizeAll(ctx, r.pool, table.Axis(r.axis), progress("vectorize"))
	if err != nil {
		return err
	}

	path, err := r.polygonsPath()
	if err != nil {
		return err
	}
	if err := vectorize.SaveLayer(path, features); err != nil {
		return fmt.Errorf("%w: %w", swath.ErrIOConflict, err)
	}
	r.env.Logger.Info("swath polygons written", "path", path, "features", len(features))
	return nil
}

func (r *run) update(ctx context.Context) error {
	if r.axis == 0 {
		return errors.New("update needs -axis")
	}
	path, err := r.polygonsPath()
	if err != nil {
		return err
	}
	features, err := vectorize.LoadLayer(path)
	if err != nil {
		return missing(err)
	}
	c := edit.NewCommitter(r.env, features, r.axis, r.conf.EditOptions())
	_, err = c.CommitAll(ctx, r.pool, progress("update"))
	return err
}
