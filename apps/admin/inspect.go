package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
)

// inspect prints an inventory of all courses with their content counts.
func (cli *commandLine) inspect() error {
	ctx := context.Background()
	courses, err := cli.courseRepo.QueryCourses(ctx)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(cli.stdout())
	tw.AppendHeader(table.Row{"ID", "Title", "Owner", "Gating", "Modules", "Lessons", "Assets"})
	for _, crs := range courses {
		mods, err := cli.courseRepo.QueryCourseModules(ctx, crs.ID)
		if err != nil {
			return err
		}
		lsns, err := cli.courseRepo.QueryCourseLessons(ctx, crs.ID)
		if err != nil {
			return err
		}
		// batch lesson queries skip assets; load each lesson for its count
		var assetCount int
		for _, lsn := range lsns {
			full, err := cli.courseRepo.GetLesson(ctx, lsn.ID)
			if err != nil {
				return err
			}
			assetCount += len(full.Assets)
		}
		tw.AppendRow(table.Row{crs.ID, crs.Title, crs.OwnerID, crs.Gating, len(mods), len(lsns), assetCount})
	}
	tw.Render()
	return nil
}
