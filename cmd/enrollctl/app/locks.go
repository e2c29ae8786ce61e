package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"attendance/internal/enrollment/models"
	"attendance/internal/lockregistry"
)

func newLocksCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Inspect and clean instructor enrollment locks",
	}
	cmd.AddCommand(newLocksSweepCmd(e), newLocksShowCmd(e))
	return cmd
}

func newLocksSweepCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove locks abandoned for longer than " + models.StaleLockAge.String(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			locks, closeLocks, err := openLocks(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer closeLocks()

			n, err := locks.SweepStale(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d stale lock(s) cleared\n", n)
			return nil
		},
	}
}

func newLocksShowCmd(e *env) *cobra.Command {
	var instructor string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show who holds an instructor's lock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			locks, closeLocks, err := openLocks(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer closeLocks()

			lock, err := locks.Holder(cmd.Context(), models.InstructorID(instructor))
			if lockregistry.IsNotFound(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "instructor %s: free\n", instructor)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "instructor %s: held by student %s for %s\n",
				instructor, lock.HolderStudentID, time.Since(lock.AcquiredAt).Round(time.Second))
			return nil
		},
	}
	cmd.Flags().StringVar(&instructor, "instructor", "", "Instructor id")
	_ = cmd.MarkFlagRequired("instructor")
	return cmd
}
