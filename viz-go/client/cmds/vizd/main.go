package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/config"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/client"
	"github.com/spf13/cobra"
)

func init() {
	log.SetPrefix("[vizd] ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

func runCmd() *cobra.Command {
	var backend *string
	var port *int

	runCmd := cobra.Command{
		Use:   "run",
		Short: "start the visualizer daemon",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			conf := config.GetConfiguration()
			if *backend != "" {
				conf.BackendURL = *backend
			}
			if *port != 0 {
				conf.LocalPort = *port
			}

			c, err := client.NewClient(client.Options{Configuration: conf})
			if err != nil {
				log.Fatalln(err)
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sig
				log.Println("shutting down")
				c.Shutdown()
			}()

			if err := c.Serve(); err != nil {
				log.Fatalln(err)
			}
		},
	}

	backend = runCmd.Flags().String("backend", "",
		"base url of the model-serving backend (overrides NNVIZ_BACKEND)")

	port = runCmd.Flags().Int("port", 0,
		"local port to serve the client api on (overrides NNVIZ_PORT)")

	return &runCmd
}

func main() {
	cmd := cobra.Command{
		Use:   "vizd",
		Short: "local daemon brokering the training backend to visualizer UIs",
	}
	cmd.AddCommand(runCmd())

	if err := cmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}
