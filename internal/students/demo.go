package students

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"serial-monitor-examples/internal/config"
)

// Run opens the database, runs the demo and releases the connection. A
// failed close is joined onto whatever the demo returned.
func Run(ctx context.Context, cfg config.Database, out io.Writer) (err error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if closeErr := Close(db); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close: %w", closeErr))
		}
	}()

	return RunDemo(ctx, NewStore(db), out)
}

// RunDemo walks the students table through create, insert, select, update,
// ordered select and delete, printing both selects to out. It stops at the
// first failing step.
func RunDemo(ctx context.Context, store *Store, out io.Writer) error {
	log := logrus.WithField("table", "students")

	log.Info("ensuring schema")
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	seed := SeedStudents()
	if err := store.InsertMany(ctx, seed); err != nil {
		return fmt.Errorf("insert students: %w", err)
	}
	log.WithField("rows", len(seed)).Info("inserted students")

	rows, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("select students: %w", err)
	}
	if err := printRows(out, "All students:", rows); err != nil {
		return err
	}

	n, err := store.UpdateAgeByName(ctx, "Charlie", 23)
	if err != nil {
		return fmt.Errorf("update Charlie: %w", err)
	}
	log.WithField("rows", n).Info("updated Charlie")

	rows, err = store.AllByAge(ctx)
	if err != nil {
		return fmt.Errorf("select students by age: %w", err)
	}
	if err := printRows(out, "Students by age:", rows); err != nil {
		return err
	}

	n, err = store.DeleteByName(ctx, "Bob")
	if err != nil {
		return fmt.Errorf("delete Bob: %w", err)
	}
	log.WithField("rows", n).Info("deleted Bob")
	return nil
}

func printRows(out io.Writer, title string, rows []Student) error {
	if _, err := fmt.Fprintln(out, title); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(out, row); err != nil {
			return err
		}
	}
	return nil
}
