package main

import (
	"encoding/json"
	"fmt"
)

type ShowCmd struct {
	importFlags

	JSON bool `short:"j" help:"Print the areas as JSON instead of tables."`
}

func (c *ShowCmd) Run(rc *runContext) error {
	as, _, err := c.load(rc)
	if err != nil {
		return err
	}

	if c.JSON {
		return json.NewEncoder(rc.out).Encode(as)
	}
	if as.Size() == 0 {
		_, err := fmt.Fprintln(rc.out, "No areas imported.")
		return err
	}
	_, err = fmt.Fprint(rc.out, as.String())
	return err
}
