package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macdems/buildbot/internal/buildsets"
	"github.com/macdems/buildbot/internal/properties"
)

func newBuildsetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buildset",
		Short: "Create, complete and inspect buildsets",
	}

	cmd.AddCommand(newBuildsetAddCmd())
	cmd.AddCommand(newBuildsetListCmd())
	cmd.AddCommand(newBuildsetShowCmd())
	cmd.AddCommand(newBuildsetCompleteCmd())
	return cmd
}

func newBuildsetAddCmd() *cobra.Command {
	var (
		configPath   string
		sourcestamps []int64
		builderIDs   []int64
		reason       string
		externalID   string
		waitedFor    bool
		propFlags    []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a buildset with one build request per builder",
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := parseProps(propFlags)
			if err != nil {
				return err
			}

			_, _, store, err := openStore(configPath)
			if err != nil {
				return err
			}

			bsid, brids, err := store.AddBuildset(buildsets.AddBuildsetRequest{
				SourceStamps:     sourcestamps,
				Reason:           reason,
				Properties:       props,
				BuilderIDs:       builderIDs,
				ExternalIDString: externalID,
				WaitedFor:        waitedFor,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created buildset %d\n", bsid)
			builders := make([]int64, 0, len(brids))
			for id := range brids {
				builders = append(builders, id)
			}
			sort.Slice(builders, func(i, j int) bool { return builders[i] < builders[j] })
			for _, id := range builders {
				fmt.Fprintf(out, "  builder %d -> request %d\n", id, brids[id])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "master.yaml", "path to master config file")
	cmd.Flags().Int64SliceVar(&sourcestamps, "sourcestamp", nil, "sourcestamp id (repeatable)")
	cmd.Flags().Int64SliceVar(&builderIDs, "builder", nil, "target builder id (repeatable)")
	cmd.Flags().StringVar(&reason, "reason", "", "why this buildset was created")
	cmd.Flags().StringVar(&externalID, "external-id", "", "caller-supplied correlation id")
	cmd.Flags().BoolVar(&waitedFor, "waited-for", false, "mark the build requests as waited for")
	cmd.Flags().StringArrayVar(&propFlags, "prop", nil, "property as name=value (repeatable)")
	return cmd
}

// parseProps turns name=value flags into a property set sourced "force".
func parseProps(flags []string) (properties.Set, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	props := make(properties.Set, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad property %q, want name=value", f)
		}
		props[name] = properties.Property{Value: value, Source: "force"}
	}
	return props, nil
}

func newBuildsetListCmd() *cobra.Command {
	var (
		configPath string
		complete   bool
		incomplete bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List buildsets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if complete && incomplete {
				return fmt.Errorf("--complete and --incomplete are mutually exclusive")
			}

			_, _, store, err := openStore(configPath)
			if err != nil {
				return err
			}

			var filter *bool
			if complete {
				v := true
				filter = &v
			} else if incomplete {
				v := false
				filter = &v
			}

			ms, err := store.GetBuildsets(filter)
			if err != nil {
				return err
			}
			sort.Slice(ms, func(i, j int) bool { return ms[i].BSID < ms[j].BSID })

			out := cmd.OutOrStdout()
			for _, m := range ms {
				fmt.Fprintln(out, formatBuildset(&m))
			}
			fmt.Fprintf(out, "%d buildsets\n", len(ms))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "master.yaml", "path to master config file")
	cmd.Flags().BoolVar(&complete, "complete", false, "only complete buildsets")
	cmd.Flags().BoolVar(&incomplete, "incomplete", false, "only incomplete buildsets")
	return cmd
}

func newBuildsetShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <bsid>",
		Short: "Show one buildset and its properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bsid, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad buildset id %q", args[0])
			}

			_, _, store, err := openStore(configPath)
			if err != nil {
				return err
			}

			m, err := store.GetBuildset(bsid)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if m == nil {
				fmt.Fprintf(out, "No buildset %d\n", bsid)
				return nil
			}
			fmt.Fprintln(out, formatBuildset(m))

			props, err := store.GetBuildsetProperties(bsid)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				p := props[name]
				fmt.Fprintf(out, "  %s = %v (from %s)\n", name, p.Value, p.Source)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "master.yaml", "path to master config file")
	return cmd
}

func newBuildsetCompleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "complete <bsid> <results>",
		Short: "Mark a buildset complete with a results code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bsid, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad buildset id %q", args[0])
			}
			results, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("bad results code %q", args[1])
			}

			_, _, store, err := openStore(configPath)
			if err != nil {
				return err
			}

			err = store.CompleteBuildset(bsid, results, nil)
			var already *buildsets.AlreadyCompleteError
			if errors.As(err, &already) {
				return fmt.Errorf("buildset %d is already complete or does not exist", bsid)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed buildset %d with results %d\n", bsid, results)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "master.yaml", "path to master config file")
	return cmd
}

// formatBuildset renders one buildset as a list line.
func formatBuildset(m *buildsets.BuildSetModel) string {
	state := "incomplete"
	if m.Complete {
		state = fmt.Sprintf("complete results=%d", m.Results)
	}
	line := fmt.Sprintf("buildset %d  %s  submitted %s  stamps %v",
		m.BSID, state, m.SubmittedAt.Format("2006-01-02 15:04:05"), m.SourceStamps)
	if m.Reason != "" {
		line += "  (" + m.Reason + ")"
	}
	return line
}
