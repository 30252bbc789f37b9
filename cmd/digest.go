package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"techservice/internal/events"
	"techservice/internal/service"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Monthly staff performance digest",
}

var digestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute and publish the digest for the previous month now",
	RunE:  runDigest,
}

func init() {
	digestCmd.AddCommand(digestRunCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()

	producer := events.NewProducer(events.ParseBrokers(rt.cfg.Kafka.Brokers), rt.cfg.Kafka.TicketTopic, rt.log)
	defer producer.Close()

	analyticsService := service.NewAnalyticsService(rt.tickets, rt.technicians, rt.cfg.Location())
	digests, err := service.NewDigestService(analyticsService, rt.technicians, producer, rt.log).
		Run(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	rt.log.Info().Int("technicians", len(digests)).Msg("digest run: ok")
	return nil
}
