package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"vending_client/internal/money"
	"vending_client/internal/tui"
	"vending_client/internal/vending"
	"vending_client/internal/viewmodel"

	"go.uber.org/zap"
)

type command struct {
	name  string
	usage string
	help  string
	args  int
	run   func(ctx context.Context, vm *viewmodel.ViewModel, args []string) (response, error)
}

var commands = map[string]command{
	"products": {
		usage: "products",
		help:  "List the catalog with slot labels and stock",
		run: func(ctx context.Context, vm *viewmodel.ViewModel, _ []string) (response, error) {
			if err := vm.Sync(ctx); err != nil {
				return response{}, err
			}
			return response{Products: productViews(vm.Snapshot())}, nil
		},
	},
	"status": {
		usage: "status",
		help:  "Show the open transaction, if any",
		run: func(ctx context.Context, vm *viewmodel.ViewModel, _ []string) (response, error) {
			vm.Refresh(ctx)
			return statusResponse(vm.Snapshot()), nil
		},
	},
	"denominations": {
		usage: "denominations",
		help:  "List accepted coins and notes",
		run: func(context.Context, *viewmodel.ViewModel, []string) (response, error) {
			values := make([]string, 0, len(money.Denominations))
			for _, d := range money.Denominations {
				values = append(values, d.String())
			}
			return response{Denominations: values}, nil
		},
	},
	"insert": {
		usage: "insert <amount>",
		help:  "Insert a coin or note (0.5, 1, 2, 5, 10)",
		args:  1,
		run: func(ctx context.Context, vm *viewmodel.ViewModel, args []string) (response, error) {
			amount, err := money.ParseDenomination(args[0])
			if err != nil {
				return response{}, err
			}
			if err := vm.InsertMoney(ctx, amount); err != nil {
				return response{}, err
			}
			return statusResponse(vm.Snapshot()), nil
		},
	},
	"select": {
		usage: "select <id|slot>",
		help:  "Toggle a product by id or slot label (A1, B2, ...)",
		args:  1,
		run: func(ctx context.Context, vm *viewmodel.ViewModel, args []string) (response, error) {
			if err := vm.Sync(ctx); err != nil {
				return response{}, err
			}
			product, err := findProduct(vm.Snapshot().Products, args[0])
			if err != nil {
				return response{}, err
			}
			if err := vm.SelectProduct(ctx, product); err != nil {
				return response{}, err
			}
			return statusResponse(vm.Snapshot()), nil
		},
	},
	"unselect": {
		usage: "unselect <id|slot>",
		help:  "Remove one selection of a product",
		args:  1,
		run: func(ctx context.Context, vm *viewmodel.ViewModel, args []string) (response, error) {
			id := args[0]
			if err := vm.LoadProducts(ctx); err == nil {
				if product, err := findProduct(vm.Snapshot().Products, id); err == nil {
					id = product.ID
				}
			}
			if err := vm.UnselectProduct(ctx, id); err != nil {
				return response{}, err
			}
			vm.RefreshInsertedMoney(ctx)
			return statusResponse(vm.Snapshot()), nil
		},
	},
	"clear": {
		usage: "clear",
		help:  "Unselect every selected product, keeping the money",
		run: func(ctx context.Context, vm *viewmodel.ViewModel, _ []string) (response, error) {
			vm.Refresh(ctx)
			if err := vm.ClearSelection(ctx); err != nil {
				return response{}, err
			}
			return statusResponse(vm.Snapshot()), nil
		},
	},
	"complete": {
		usage: "complete",
		help:  "Buy the selected products and collect change",
		run: func(ctx context.Context, vm *viewmodel.ViewModel, _ []string) (response, error) {
			vm.Refresh(ctx)
			if err := vm.CompleteTransaction(ctx); err != nil {
				return response{}, err
			}
			return receiptResponse(vm.Snapshot()), nil
		},
	},
	"cancel": {
		usage: "cancel",
		help:  "Cancel the transaction and get a refund",
		run: func(ctx context.Context, vm *viewmodel.ViewModel, _ []string) (response, error) {
			vm.Refresh(ctx)
			if err := vm.CancelTransaction(ctx); err != nil {
				return response{}, err
			}
			return receiptResponse(vm.Snapshot()), nil
		},
	},
}

func commandList() []command {
	list := make([]command, 0, len(commands))
	for name, c := range commands {
		c.name = name
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })
	return list
}

func runCommand(ctx context.Context, opts *Options, logger *zap.Logger, vm *viewmodel.ViewModel, baseURL string, out io.Writer) error {
	cmd, ok := commands[opts.Command]
	if !ok {
		return fmt.Errorf("unknown command %q, run with -h for usage", opts.Command)
	}
	if len(opts.Args) != cmd.args {
		return fmt.Errorf("usage: %s", cmd.usage)
	}

	logger.Info("command received",
		zap.String("command", opts.Command),
		zap.Strings("args", opts.Args),
		zap.String("base_url", baseURL),
		zap.Bool("json", opts.JSON),
	)

	resp, record, err := trackCall(logger, opts.Command, opts.Args, func() (response, error) {
		return cmd.run(ctx, vm, opts.Args)
	})
	if err != nil {
		return friendlyError(err)
	}
	resp.Command = opts.Command
	resp.Calls = []callRecord{record}

	logResponse(logger, resp)
	return writeResponse(out, opts, resp)
}

// findProduct matches an id first, then a slot label.
func findProduct(products []vending.Product, ref string) (vending.Product, error) {
	ref = strings.TrimSpace(ref)
	for _, p := range products {
		if p.ID == ref {
			return p, nil
		}
	}
	for i, p := range products {
		if strings.EqualFold(tui.SlotLabel(i), ref) {
			return p, nil
		}
	}
	return vending.Product{}, fmt.Errorf("product %q not found", ref)
}
