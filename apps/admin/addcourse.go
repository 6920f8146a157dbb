package main

import (
	"context"
	"fmt"

	"github.com/saifdine/daura/core"
	"github.com/saifdine/daura/core/course"
)

func (cli *commandLine) addCourse(title, startDate string) error {
	nc := course.NewCourse{
		Title:     core.CleanString(title),
		StartDate: core.CleanString(startDate),
	}
	if err := nc.Validate(); err != nil {
		return err
	}

	c, err := cli.crsSvc.Create(context.Background(), nc)
	if err != nil {
		return err
	}
	fmt.Printf("course %d created: %s (%s - %s)\n",
		c.ID, c.Title, c.StartDate.Format(core.DateFormat), c.EndDate.Format(core.DateFormat))
	return nil
}
