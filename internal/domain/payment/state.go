package payment

// attemptState implements the state pattern for the settlement lifecycle.
type attemptState interface {
	Status() Status
	OnPushAccepted(a *Attempt) (attemptState, error)
	OnSecretProvided(a *Attempt) (attemptState, error)
	OnProcessing(a *Attempt) (attemptState, error)
	OnSucceeded(a *Attempt) (attemptState, error)
	OnFailed(a *Attempt) (attemptState, error)
	OnCanceled(a *Attempt) (attemptState, error)
}

type collectingState struct{}

func (collectingState) Status() Status { return StatusCollecting }

func (collectingState) OnPushAccepted(*Attempt) (attemptState, error) {
	return awaitingSecretState{}, nil
}

func (collectingState) OnSecretProvided(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (collectingState) OnProcessing(*Attempt) (attemptState, error) {
	return processingState{}, nil
}

// Cash settles synchronously: collecting resolves straight to succeeded.
func (collectingState) OnSucceeded(*Attempt) (attemptState, error) {
	return succeededState{}, nil
}

// A gateway rejection during initiation fails the attempt before any
// asynchronous wait begins.
func (collectingState) OnFailed(*Attempt) (attemptState, error) {
	return failedState{}, nil
}

func (collectingState) OnCanceled(*Attempt) (attemptState, error) {
	return canceledState{}, nil
}

type awaitingSecretState struct{}

func (awaitingSecretState) Status() Status { return StatusAwaitingSecret }

func (awaitingSecretState) OnPushAccepted(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (awaitingSecretState) OnSecretProvided(*Attempt) (attemptState, error) {
	return processingState{}, nil
}

func (awaitingSecretState) OnProcessing(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

// The gateway can resolve the push before the register finishes the PIN
// prompt; both outcomes are accepted here.
func (awaitingSecretState) OnSucceeded(*Attempt) (attemptState, error) {
	return succeededState{}, nil
}

func (awaitingSecretState) OnFailed(*Attempt) (attemptState, error) {
	return failedState{}, nil
}

func (awaitingSecretState) OnCanceled(*Attempt) (attemptState, error) {
	return canceledState{}, nil
}

type processingState struct{}

func (processingState) Status() Status { return StatusProcessing }

func (processingState) OnPushAccepted(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (processingState) OnSecretProvided(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (processingState) OnProcessing(*Attempt) (attemptState, error) {
	return processingState{}, nil
}

func (processingState) OnSucceeded(*Attempt) (attemptState, error) {
	return succeededState{}, nil
}

func (processingState) OnFailed(*Attempt) (attemptState, error) {
	return failedState{}, nil
}

func (processingState) OnCanceled(*Attempt) (attemptState, error) {
	return canceledState{}, nil
}

type succeededState struct{}

func (succeededState) Status() Status { return StatusSucceeded }

func (succeededState) OnPushAccepted(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (succeededState) OnSecretProvided(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (succeededState) OnProcessing(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (succeededState) OnSucceeded(*Attempt) (attemptState, error) {
	return succeededState{}, nil
}

func (succeededState) OnFailed(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (succeededState) OnCanceled(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

type failedState struct{}

func (failedState) Status() Status { return StatusFailed }

func (failedState) OnPushAccepted(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (failedState) OnSecretProvided(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (failedState) OnProcessing(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (failedState) OnSucceeded(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (failedState) OnFailed(*Attempt) (attemptState, error) {
	return failedState{}, nil
}

func (failedState) OnCanceled(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

type canceledState struct{}

func (canceledState) Status() Status { return StatusCanceled }

func (canceledState) OnPushAccepted(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (canceledState) OnSecretProvided(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

func (canceledState) OnProcessing(*Attempt) (attemptState, error) {
	return nil, ErrInvalidStateTransition
}

// A late callback after a local cancel is still honored for the audit trail.
func (canceledState) OnSucceeded(*Attempt) (attemptState, error) {
	return succeededState{}, nil
}

func (canceledState) OnFailed(*Attempt) (attemptState, error) {
	return failedState{}, nil
}

func (canceledState) OnCanceled(*Attempt) (attemptState, error) {
	return canceledState{}, nil
}
