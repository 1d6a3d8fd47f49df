// Package flow runs a booking write as an ordered list of named stages.
// Stages marked Transactional run inside one store transaction; the rest run
// before it. A failing stage moves the flow to Aborted and, once inside the
// transaction, discards every write made by earlier stages.
package flow

import (
	"context"
	"errors"
	"fmt"

	mongotx "roomly/pkg/db/mongo"
	"roomly/pkg/logger"
)

type Stage string

const (
	Validating             Stage = "Validating"
	ConflictChecking       Stage = "ConflictChecking"
	Inserting              Stage = "Inserting"
	Updating               Stage = "Updating"
	Deleting               Stage = "Deleting"
	ExpandingParticipants  Stage = "ExpandingParticipants"
	NotifyingAndCommitting Stage = "NotifyingAndCommitting"
	Committed              Stage = "Committed"
	Aborted                Stage = "Aborted"
)

type Step[S any] struct {
	Stage         Stage
	Transactional bool
	Execute       func(ctx context.Context, state *S) error
}

func NewStep[S any](stage Stage, execute func(ctx context.Context, state *S) error) Step[S] {
	return Step[S]{Stage: stage, Execute: execute}
}

func NewTxStep[S any](stage Stage, execute func(ctx context.Context, state *S) error) Step[S] {
	return Step[S]{Stage: stage, Transactional: true, Execute: execute}
}

// StageError records the stage a flow aborted in. It unwraps to the stage's error.
type StageError struct {
	Flow  string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s aborted in %s: %v", e.Flow, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type Machine[S any] struct {
	name  string
	steps []Step[S]
	tx    mongotx.TransactionManager
	log   *logger.Logger

	// BeginAttempt runs before every transaction attempt. The store may rerun
	// the transactional stages after a write conflict.
	BeginAttempt func(state *S)

	// OnStage is called on every transition, including Committed and Aborted.
	OnStage func(stage Stage)
}

func NewMachine[S any](name string, tx mongotx.TransactionManager, log *logger.Logger, steps ...Step[S]) *Machine[S] {
	return &Machine[S]{
		name:  name,
		steps: steps,
		tx:    tx,
		log:   log,
	}
}

func (m *Machine[S]) Name() string {
	return m.name
}

func (m *Machine[S]) Run(ctx context.Context, state *S) error {
	var pre, inTx []Step[S]
	for _, step := range m.steps {
		if step.Transactional {
			inTx = append(inTx, step)
		} else if len(inTx) == 0 {
			pre = append(pre, step)
		} else {
			return fmt.Errorf("flow %s: stage %s runs outside the transaction after transactional stages", m.name, step.Stage)
		}
	}

	if err := m.runSteps(ctx, state, pre, nil); err != nil {
		return err
	}

	if len(inTx) > 0 {
		reached := inTx[0].Stage
		err := m.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			if m.BeginAttempt != nil {
				m.BeginAttempt(state)
			}
			return m.runSteps(txCtx, state, inTx, &reached)
		})
		if err != nil {
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				return err
			}
			// lock acquisition or commit failed outside any stage
			m.enter(Aborted)
			return &StageError{Flow: m.name, Stage: reached, Err: err}
		}
	}

	m.enter(Committed)
	return nil
}

func (m *Machine[S]) runSteps(ctx context.Context, state *S, steps []Step[S], reached *Stage) error {
	for _, step := range steps {
		if reached != nil {
			*reached = step.Stage
		}
		m.enter(step.Stage)
		if err := step.Execute(ctx, state); err != nil {
			m.log.Debug("Flow stage failed", "flow", m.name, "stage", string(step.Stage), "error", err)
			m.enter(Aborted)
			return &StageError{Flow: m.name, Stage: step.Stage, Err: err}
		}
	}
	return nil
}

func (m *Machine[S]) enter(stage Stage) {
	if m.OnStage != nil {
		m.OnStage(stage)
	}
}
