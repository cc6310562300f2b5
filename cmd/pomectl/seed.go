package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pomegranate/internal/app"
	appctx "pomegranate/internal/core/context"
	"pomegranate/internal/core/tx"
	"pomegranate/internal/domain/crud"
)

// Fixtures is a seed file. Entities are created in file order so referenced
// rows can precede the rows that point at them.
//
//	entities:
//	  - name: tags
//	    records:
//	      - name: golang
//	        description: Go posts
type Fixtures struct {
	Entities []EntityFixture `yaml:"entities"`
}

// EntityFixture lists records for one registered entity.
type EntityFixture struct {
	Name    string           `yaml:"name"`
	Records []map[string]any `yaml:"records"`
}

func parseFixtures(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixtures
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("fixture file is empty")
		}
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, e := range fx.Entities {
		if e.Name == "" {
			return nil, fmt.Errorf("entities[%d]: name is required", i)
		}
	}
	return &fx, nil
}

// seedPrincipal attributes seeded rows in the audit log.
var seedPrincipal = &appctx.Principal{Username: "pomectl", Kind: appctx.KindAdmin}

// applyFixtures creates every record through the entity services so hooks
// and audit run as they do for API writes. All records share one
// transaction: a failure leaves the database untouched.
func applyFixtures(ctx context.Context, txm tx.Manager, reg *crud.Registry, fx *Fixtures) (map[string]int, error) {
	for _, e := range fx.Entities {
		if _, ok := reg.Get(e.Name); !ok {
			return nil, fmt.Errorf("unknown entity %q", e.Name)
		}
	}

	created := make(map[string]int, len(fx.Entities))
	ctx = appctx.WithPrincipal(ctx, seedPrincipal)
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, e := range fx.Entities {
			rs, _ := reg.Get(e.Name)
			for i, rec := range e.Records {
				if _, err := rs.Create(ctx, crud.Record(rec)); err != nil {
					return fmt.Errorf("%s[%d]: %w", e.Name, i, err)
				}
				created[e.Name]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func init() {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load fixture records from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			fx, err := parseFixtures(f)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				created, err := applyFixtures(ctx, a.Tx, a.Entities, fx)
				if err != nil {
					return err
				}
				for _, e := range fx.Entities {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", e.Name, created[e.Name])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixture file (required)")
	_ = cmd.MarkFlagRequired("file")
	rootCmd.AddCommand(cmd)
}
