package saga

import (
	"context"
	"errors"
	"testing"

	domain "github.com/sandvault/sandvault/internal/errors"
	"github.com/sandvault/sandvault/internal/logger"
)

func step(name string, trace *[]string, performErr error) Step[string] {
	return Step[string]{
		Name: name,
		Perform: func(ctx context.Context) (string, error) {
			if performErr != nil {
				return "", performErr
			}
			*trace = append(*trace, "perform:"+name)
			return name, nil
		},
		Compensate: func(ctx context.Context) error {
			*trace = append(*trace, "compensate:"+name)
			return nil
		},
	}
}

func TestRun_AllStepsSucceed(t *testing.T) {
	var trace []string
	steps := []Step[string]{
		step("one", &trace, nil),
		step("two", &trace, nil),
		step("three", &trace, nil),
	}

	result, err := Run(context.Background(), logger.NewNop(), steps)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result != "three" {
		t.Errorf("expected final step result, got %q", result)
	}
	want := []string{"perform:one", "perform:two", "perform:three"}
	if len(trace) != len(want) {
		t.Fatalf("expected %d trace entries, got %v", len(want), trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Errorf("trace[%d] = %q, want %q", i, trace[i], want[i])
		}
	}
}

func TestRun_RollsBackInReverseOrder(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	steps := []Step[string]{
		step("one", &trace, nil),
		step("two", &trace, nil),
		step("three", &trace, boom),
	}

	_, err := Run(context.Background(), logger.NewNop(), steps)
	if err == nil {
		t.Fatal("expected error")
	}

	var txErr *domain.TransactionFailed
	if !errors.As(err, &txErr) {
		t.Fatalf("expected TransactionFailed, got %T", err)
	}
	if txErr.Step != "three" {
		t.Errorf("expected failing step three, got %q", txErr.Step)
	}
	if !errors.Is(err, boom) {
		t.Error("expected the original cause to be reachable via errors.Is")
	}

	want := []string{"perform:one", "perform:two", "compensate:two", "compensate:one"}
	if len(trace) != len(want) {
		t.Fatalf("expected trace %v, got %v", want, trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Errorf("trace[%d] = %q, want %q", i, trace[i], want[i])
		}
	}
}

func TestRun_CompensationErrorDoesNotMaskOriginal(t *testing.T) {
	boom := errors.New("boom")
	var compensated bool
	steps := []Step[struct{}]{
		{
			Name:    "first",
			Perform: func(ctx context.Context) (struct{}, error) { return struct{}{}, nil },
			Compensate: func(ctx context.Context) error {
				compensated = true
				return errors.New("compensation also failed")
			},
		},
		Do[struct{}]("second", func(ctx context.Context) error { return boom }, nil),
	}

	_, err := Run(context.Background(), logger.NewNop(), steps)
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if !compensated {
		t.Error("expected compensation to run despite its own failure")
	}
}

func TestRun_NilCompensateIsSkipped(t *testing.T) {
	boom := errors.New("boom")
	steps := []Step[struct{}]{
		Do[struct{}]("first", func(ctx context.Context) error { return nil }, nil),
		Do[struct{}]("second", func(ctx context.Context) error { return boom }, nil),
	}
	_, err := Run(context.Background(), logger.NewNop(), steps)
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
}

func TestRun_FailingStepIsNotCompensated(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	steps := []Step[string]{
		step("one", &trace, nil),
		step("two", &trace, boom),
	}

	_, _ = Run(context.Background(), logger.NewNop(), steps)
	for _, entry := range trace {
		if entry == "compensate:two" {
			t.Error("failing step must not compensate itself")
		}
	}
}
