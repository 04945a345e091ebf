package metrics

import (
	"errors"

	"github.com/nibzard/fanout/internal/parallel"
)

func isTimeout(err error) bool {
	return errors.Is(err, parallel.ErrTimeout)
}

func isTaskFailure(err error) bool {
	_, ok := parallel.TaskIndex(err)
	return ok
}
