package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/engine"
	"github.com/skillprobe/interviewer/internal/logger"
)

var followupCmd = &cobra.Command{
	Use:   "followup",
	Short: "Grade an answer and print a follow-up question when one is warranted",
	Run: func(cmd *cobra.Command, _ []string) {
		followup(cmd)
	},
}

func init() {
	rootCmd.AddCommand(followupCmd)

	followupCmd.Flags().String("topic", "Python", "question topic")
	followupCmd.Flags().String("question", "", "the question that was asked")
	followupCmd.Flags().String("answer", "", "the candidate answer")

	followupCmd.MarkFlagRequired("question")
}

func followup(cmd *cobra.Command) {
	ctx := context.Background()

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
		fmt.Fprintln(os.Stderr, "an answer is required: pass --answer")
		os.Exit(1)
	}

	gen, err := buildGenerator(config, zl)
	if err != nil {
		zl.Fatal("building the ollama client", zap.Error(err))
	}

	q := cmd.Flag("question").Value.String()
	rec := engine.NewEvaluator(gen, evalMaxTokens(), zl).Evaluate(ctx, cmd.Flag("topic").Value.String(), q, answer)

	if !rec.FollowupNeeded {
		fmt.Println("No follow-up needed.")
		return
	}

	fq, err := engine.NewFollowup(gen, zl).Generate(ctx, q, answer, rec.Hint, rec.Misconceptions)
	if err != nil {
		zl.Fatal("generating a follow-up", zap.Error(err))
	}

	fmt.Println(fq)
}
