/*
Package cli provides the helpers shared by the verdict commands: error
types with exit codes, result formatters, a progress reporter for batch
runs and signal-driven cancellation.

Output Formatting:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatTo(cmd.OutOrStdout(), results)

Values implementing TextWriter control their own text rendering; anything
else is printed with %v.

Exit Codes:

	if err := root.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
