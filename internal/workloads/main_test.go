package workloads

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/nibzard/fanout/internal/parallel"
)

func TestMain(m *testing.M) {
	handled, err := parallel.ServeChild(context.Background(), NewRegistry(), os.Stdin, os.Stdout, os.Stderr)
	if handled {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}
