package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/vectorindex"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Work with the embedding indexes",
}

var indexCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Build both indexes from their shards and report their state",
	Run: func(_ *cobra.Command, _ []string) {
		checkIndexes()
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexCheckCmd)
}

func checkIndexes() {
	ctx := context.Background()
	rt := newRuntime()
	defer rt.close(ctx)

	vacancies, courses := rt.indexes()
	lines, unavailable := indexReport(vacancies, courses)
	for _, line := range lines {
		fmt.Println(line)
	}

	if len(unavailable) > 0 {
		rt.logger.Fatal("some indexes are unavailable", zap.Strings("indexes", unavailable))
	}
}

// indexReport describes every index and names the unavailable ones.
func indexReport(indexes ...*vectorindex.Index) (lines, unavailable []string) {
	for _, idx := range indexes {
		if !idx.Available() {
			unavailable = append(unavailable, idx.Name())
			lines = append(lines, fmt.Sprintf("%s: unavailable (%v)", idx.Name(), idx.Cause()))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d vectors, dim %d", idx.Name(), idx.Len(), idx.Dim()))
	}
	return lines, unavailable
}
