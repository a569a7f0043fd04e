// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/cg1/g1embed/internal/embed"
)

// renderPlan prints the steps an embedding run would take, grouped by stage.
func renderPlan(w io.Writer, req embed.Request, steps []embed.PlanStep) {
	fmt.Fprintln(w, TitleStyle.Render("Dry Run"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s %s\n", VerboseHighlightStyle.Render("Input:"), req.InputPath)
	fmt.Fprintf(w, "  %s %s\n", VerboseHighlightStyle.Render("Output:"), req.OutputPath)
	fmt.Fprintf(w, "  %s %s\n", VerboseHighlightStyle.Render("Target:"), req.Target)
	fmt.Fprintf(w, "  %s %q (scale %d, fps %v, static %v)\n",
		VerboseHighlightStyle.Render("Window:"), req.Title, req.Scale, req.ShowFPS, req.StaticLink)

	var stage embed.State
	for i, step := range steps {
		if step.State != stage {
			stage = step.State
			fmt.Fprintln(w)
			fmt.Fprintln(w, VerboseHighlightStyle.Render("  "+stage.String()+":"))
		}
		fmt.Fprintf(w, "    %d. %s\n", i+1, step.Description)
		if step.Command != nil {
			fmt.Fprintf(w, "       %s\n", CmdStyle.Render("$ "+step.CommandLine()))
		}
	}

	fmt.Fprintln(w)
}
