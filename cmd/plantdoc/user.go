package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/matthewjhunter/plantdoc"
	"github.com/spf13/cobra"
)

func favoriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorite",
		Short: "Manage favorite diseases",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <disease-id>",
		Short: "Add a disease to the favorites, or remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			on, err := engine.ToggleFavorite(userID, id)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("已取消收藏 #%d", id)
			if on {
				msg = fmt.Sprintf("已收藏 #%d", id)
			}
			return newFormatter().OutputMessage("favorite_toggled", msg, map[string]any{"id": id, "favorite": on})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List favorite diseases",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputDiseaseList(engine.FavoriteDiseases(userID), nil)
		},
	})
	return cmd
}

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Manage the compare list (up to four diseases)",
	}

	withID := func(use, short string, run func(e *plantdoc.Engine, id int) ([]int, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <disease-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				engine, err := openEngine(cmd.Context())
				if err != nil {
					return err
				}
				defer engine.Close()

				list, err := run(engine, id)
				if err != nil {
					return err
				}
				return newFormatter().OutputIDs("对比列表", list)
			},
		}
	}

	cmd.AddCommand(withID("add", "Add a disease to the compare list", func(e *plantdoc.Engine, id int) ([]int, error) {
		return e.AddToCompare(userID, id)
	}))
	cmd.AddCommand(withID("remove", "Remove a disease from the compare list", func(e *plantdoc.Engine, id int) ([]int, error) {
		return e.RemoveFromCompare(userID, id)
	}))

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the compare list",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			if err := engine.ClearCompare(userID); err != nil {
				return err
			}
			return newFormatter().OutputIDs("对比列表", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the compare table",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			table, err := engine.CompareTable(userID)
			if err != nil {
				return err
			}
			return newFormatter().OutputCompareTable(table)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "share",
		Short: "Create a signed link token for the compare list",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			token, err := engine.ShareCompare(userID)
			if err != nil {
				return err
			}
			return newFormatter().OutputMessage("compare_shared", token, map[string]any{"token": token})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "open <token>",
		Short: "Show the compare table of a share token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			table, err := engine.SharedCompare(args[0])
			if err != nil {
				return err
			}
			return newFormatter().OutputCompareTable(table)
		},
	})
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear recent searches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent searches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputStrings("最近搜索", engine.SearchHistory(userID))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the search history",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			if err := engine.ClearSearchHistory(userID); err != nil {
				return err
			}
			return newFormatter().OutputMessage("history_cleared", "搜索历史已清除", nil)
		},
	})
	return cmd
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show, edit or export the user profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputUserData(engine.UserData(userID))
		},
	})

	var update plantdoc.UserData
	set := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields; empty flags keep the stored value",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			data, err := engine.SaveUserData(userID, update)
			if err != nil {
				return err
			}
			return newFormatter().OutputUserData(data)
		},
	}
	set.Flags().StringVar(&update.FullName, "name", "", "full name")
	set.Flags().StringVar(&update.Email, "email", "", "email address")
	set.Flags().StringVar(&update.Region, "region", "", "region")
	set.Flags().StringVar(&update.BirthDate, "birth-date", "", "birth date (YYYY-MM-DD)")
	set.Flags().StringVar(&update.Phone, "phone", "", "phone number")
	cmd.AddCommand(set)

	var outPath string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write all stored user data to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			data, err := engine.ExportUserData(userID)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = fmt.Sprintf("plantdoc-export-%s.json", uuid.NewString())
			}
			if outPath == "-" {
				_, err := os.Stdout.Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(outPath, data, 0600); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			return newFormatter().OutputMessage("profile_exported", "已导出到 "+outPath, map[string]any{"path": outPath})
		},
	}
	export.Flags().StringVarP(&outPath, "out", "o", "", "output file (- for stdout)")
	cmd.AddCommand(export)
	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputSettings(engine.UserSettings(userID))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store one setting; true and false are stored as booleans",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			settings, err := engine.SaveSetting(userID, args[0], args[1])
			if err != nil {
				return err
			}
			return newFormatter().OutputSettings(settings)
		},
	})
	return cmd
}
