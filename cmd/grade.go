package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/engine"
	"github.com/skillprobe/interviewer/internal/interview"
	"github.com/skillprobe/interviewer/internal/logger"
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade a single answer and print the evaluation",
	Run: func(cmd *cobra.Command, _ []string) {
		grade(cmd)
	},
}

func init() {
	rootCmd.AddCommand(gradeCmd)

	gradeCmd.Flags().String("topic", "Python", "question topic")
	gradeCmd.Flags().String("question", "", "the question that was asked")
	gradeCmd.Flags().String("answer", "", "the candidate answer; read from stdin when unset")

	gradeCmd.MarkFlagRequired("question")
}

func grade(cmd *cobra.Command) {
	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}

	answer := cmd.Flag("answer").Value.String()
	if strings.TrimSpace(answer) == "" {
		answer = readAllStdin()
	}
	if strings.TrimSpace(answer) == "" {
		fmt.Fprintln(os.Stderr, "an answer is required: pass --answer or pipe it on stdin")
		os.Exit(1)
	}

	gen, err := buildGenerator(config, zl)
	if err != nil {
		zl.Fatal("building the ollama client", zap.Error(err))
	}

	ev := engine.NewEvaluator(gen, evalMaxTokens(), zl)
	rec := ev.Evaluate(
		context.Background(),
		cmd.Flag("topic").Value.String(),
		cmd.Flag("question").Value.String(),
		answer,
	)

	pretty, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		zl.Fatal("encoding the evaluation", zap.Error(err))
	}

	fmt.Println(string(pretty))
	fmt.Printf("Verdict: %s\n", interview.CoarseVerdict(rec.Overall))
}

func readAllStdin() string {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return ""
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	return string(data)
}
