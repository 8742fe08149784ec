package utils

import (
	"log"
	"time"

	"golang.org/x/xerrors"
)

// TransientError marks a failure worth another attempt, such as a
// connection error or an upstream 429/5xx.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func Transient(err error) error {
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return xerrors.As(err, &te)
}

// Retry runs fn up to attempts times. Only transient errors are retried;
// the wait before attempt n+1 is 2^n seconds. A nil sleep uses time.Sleep.
func Retry(attempts int, sleep func(time.Duration), fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !IsTransient(err) || i == attempts {
			return err
		}
		wait := time.Duration(1<<uint(i)) * time.Second
		log.Printf("retry after %s\n", wait)
		sleep(wait)
	}
	return err
}
