/*
Package cli provides the helpers shared by the notfound commands.

Output Formatting:

Command results are printed as aligned text tables or as JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

A value implementing Tabular is rendered as a table by the text formatter;
anything else is printed with %v.

Progress Reporting:

Bulk operations such as redirect imports report progress on stderr:

	progress := cli.NewProgress(os.Stderr, "importing", quiet)
	progress.Start(int64(len(records)))
	for _, rec := range records {
		// write rec
		progress.Add(1)
	}
	progress.Finish()

Errors and Exit Codes:

Commands return ConfigError for anything wrong with the configuration and
CommandError for failures while running. main maps the returned error to the
process exit status with ExitCode:

	if err := cmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	reload, stopReload := cli.NotifyReload()
	defer stopReload()
*/
package cli
