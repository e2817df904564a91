package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/engine"
	"github.com/skillprobe/interviewer/internal/interview"
	"github.com/skillprobe/interviewer/internal/logger"
)

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Print one interview question and exit",
	Run: func(cmd *cobra.Command, _ []string) {
		question(cmd)
	},
}

func init() {
	rootCmd.AddCommand(questionCmd)

	questionCmd.Flags().String("topic", "Python", "question topic")
	questionCmd.Flags().String("difficulty", interview.DifficultyMed, "question difficulty: easy|medium|hard")
	questionCmd.Flags().String("type", interview.TypeMixed, "question type: coding|theory|design|debugging|mixed")
}

func question(cmd *cobra.Command) {
	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}

	gen, err := buildGenerator(config, zl)
	if err != nil {
		zl.Fatal("building the ollama client", zap.Error(err))
	}

	sel := engine.NewSelector(gen, loadSeeds(zl), nil, zl)

	topic := cmd.Flag("topic").Value.String()
	tagged, err := sel.Select(
		context.Background(),
		topic,
		cmd.Flag("difficulty").Value.String(),
		cmd.Flag("type").Value.String(),
		nil,
	)
	if err != nil {
		zl.Fatal("generating a question", zap.Error(err), zap.String("topic", topic))
	}

	fmt.Println(engine.StripTag(tagged))
}
