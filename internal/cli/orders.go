package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/restaurant/internal/app"
	"github.com/Additional-Code/restaurant/internal/dto"
	"github.com/Additional-Code/restaurant/internal/entity"
	ordersvc "github.com/Additional-Code/restaurant/internal/service/order"
)

type orderReader interface {
	All(ctx context.Context) ([]entity.Order, error)
	ByID(ctx context.Context, id uuid.UUID) ([]entity.Order, error)
	ByTable(ctx context.Context, tableNo int32) ([]entity.Order, error)
	ByTableAndItem(ctx context.Context, tableNo int32, item string) ([]entity.Order, error)
}

type orderDeleter interface {
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByTableAndItem(ctx context.Context, tableNo int32, item string) error
}

// orderSelector is the set of order flags shared by list and delete.
type orderSelector struct {
	id       string
	tableNo  int32
	hasTable bool
	item     string
}

func selectorFrom(cmd *cobra.Command) orderSelector {
	id, _ := cmd.Flags().GetString("id")
	tableNo, _ := cmd.Flags().GetInt32("table")
	item, _ := cmd.Flags().GetString("item")
	return orderSelector{
		id:       id,
		tableNo:  tableNo,
		hasTable: cmd.Flags().Changed("table"),
		item:     item,
	}
}

func (s orderSelector) parseID() (uuid.UUID, error) {
	id, err := uuid.Parse(s.id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --id %q: %w", s.id, err)
	}
	return id, nil
}

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and remove stored orders",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print orders as JSON, optionally filtered by id, table and item",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := selectorFrom(cmd)
			return withOrderService(cmd.Context(), func(ctx context.Context, svc *ordersvc.Service) error {
				return listOrders(ctx, svc, cmd.OutOrStdout(), sel)
			})
		},
	}
	listCmd.Flags().String("id", "", "Order id")
	listCmd.Flags().Int32("table", 0, "Table number")
	listCmd.Flags().String("item", "", "Menu item, requires --table")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an order by --id, or every order matching --table and --item",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := selectorFrom(cmd)
			return withOrderService(cmd.Context(), func(ctx context.Context, svc *ordersvc.Service) error {
				return deleteOrders(ctx, svc, cmd.OutOrStdout(), sel)
			})
		},
	}
	deleteCmd.Flags().String("id", "", "Order id")
	deleteCmd.Flags().Int32("table", 0, "Table number")
	deleteCmd.Flags().String("item", "", "Menu item")

	cmd.AddCommand(listCmd, deleteCmd)
	return cmd
}

func withOrderService(ctx context.Context, fn func(context.Context, *ordersvc.Service) error) error {
	var svc *ordersvc.Service
	opts := fx.Options(app.Core, fx.Populate(&svc))
	return runWithApp(ctx, opts, func(ctx context.Context) error {
		return fn(ctx, svc)
	})
}

func listOrders(ctx context.Context, svc orderReader, w io.Writer, sel orderSelector) error {
	var (
		orders []entity.Order
		err    error
	)
	switch {
	case sel.id != "":
		id, perr := sel.parseID()
		if perr != nil {
			return perr
		}
		orders, err = svc.ByID(ctx, id)
	case sel.item != "" && !sel.hasTable:
		return errors.New("--item requires --table")
	case sel.item != "":
		orders, err = svc.ByTableAndItem(ctx, sel.tableNo, sel.item)
	case sel.hasTable:
		orders, err = svc.ByTable(ctx, sel.tableNo)
	default:
		orders, err = svc.All(ctx)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dto.FromOrders(orders))
}

func deleteOrders(ctx context.Context, svc orderDeleter, w io.Writer, sel orderSelector) error {
	switch {
	case sel.id != "" && (sel.hasTable || sel.item != ""):
		return errors.New("use either --id or --table with --item")
	case sel.id != "":
		id, err := sel.parseID()
		if err != nil {
			return err
		}
		if err := svc.DeleteByID(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted order %s\n", id)
		return nil
	case sel.hasTable && sel.item != "":
		if err := svc.DeleteByTableAndItem(ctx, sel.tableNo, sel.item); err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted %s orders at table %d\n", sel.item, sel.tableNo)
		return nil
	default:
		return errors.New("delete needs --id, or --table together with --item")
	}
}
