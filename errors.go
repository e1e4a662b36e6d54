package main

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrNoData           = errors.New("input shorter than one block")
	ErrNoRepetition     = errors.New("no repeated block worth a color")
	ErrInsufficientData = errors.New("not enough blocks to infer dimensions")
	ErrSizeMismatch     = errors.New("canvas size does not fit the data")
	ErrInvalidMagic     = errors.New("ecbr: invalid magic")
)

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
