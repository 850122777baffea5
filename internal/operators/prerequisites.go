package operators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

// PrerequisiteMissing reports the first required platform operator that
// never reached a Running pod within the prerequisites budget.
type PrerequisiteMissing struct {
	Name    string
	Pattern string
}

func (e *PrerequisiteMissing) Error() string {
	return fmt.Sprintf("required operator not running: %s (no Running pod matching %q)", e.Name, e.Pattern)
}

// requiredOperators are checked in order, fail-fast on the first unmet one.
// The pattern is matched against namespace/name of Running pods, since some
// operators (OLM) are identifiable only by their namespace.
var requiredOperators = []struct {
	pattern string
	name    string
}{
	{"service-ca", "Service CA Operator"},
	{"operator-lifecycle", "Operator Lifecycle Manager (OLM)"},
	{"machine-config", "MachineConfig Operator"},
	{"image-registry", "Cluster Image Registry Operator"},
}

const registryNamespace = "openshift-image-registry"

const (
	registryConfigKind     = "configs.imageregistry.operator.openshift.io"
	registryConfigName     = "cluster"
	registryStoragePatch   = `{"spec":{"storage":{"emptyDir":{}}}}`
	registryManagedPatch   = `{"spec":{"managementState":"Managed"}}`
	registryRemovedPatch   = `{"spec":{"managementState":"Removed"}}`
)

// VerifyPrerequisites checks that the Service CA, OLM, MachineConfig and
// Image Registry operators all have Running pods, waiting up to the
// prerequisites budget. On timeout the error is a *PrerequisiteMissing for
// the first unmet operator.
func (s *Stack) VerifyPrerequisites(ctx context.Context) error {
	s.logf("Verifying required cluster operators...")

	var unmet *PrerequisiteMissing
	cond := waiter.Condition{
		Name:     "required platform operators running",
		Interval: 15 * time.Second,
		Timeout:  s.timeouts.Prerequisites,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			pods, err := s.oc.Pods(ctx, "")
			if err != nil {
				return waiter.Pending("API not reachable: %v", err), nil
			}
			running := make([]string, 0, len(pods.Items))
			for _, pod := range pods.Items {
				if string(pod.Status.Phase) == "Running" {
					running = append(running, pod.Namespace+"/"+pod.Name)
				}
			}
			for _, req := range requiredOperators {
				if !anyContains(running, req.pattern) {
					unmet = &PrerequisiteMissing{Name: req.name, Pattern: req.pattern}
					return waiter.Pending("waiting for %s (%s)", req.name, req.pattern), nil
				}
			}
			unmet = nil
			return waiter.Satisfied(), nil
		},
	}

	if err := waiter.Wait(ctx, cond, s.log); err != nil {
		if waiter.IsTimeout(err) && unmet != nil {
			return unmet
		}
		return err
	}
	s.logf("All required operators are running.")
	return nil
}

// ConfigureRegistry enables the internal image registry: storage backed by
// an emptyDir and managementState Managed, then a Running registry pod.
// Both patches are no-ops when the fields already hold those values.
func (s *Stack) ConfigureRegistry(ctx context.Context) error {
	s.logf("Configuring internal image registry...")

	if err := s.oc.Patch(ctx, registryConfigKind, registryConfigName, "", registryStoragePatch); err != nil {
		return fmt.Errorf("patching registry storage: %w", err)
	}
	if err := s.oc.Patch(ctx, registryConfigKind, registryConfigName, "", registryManagedPatch); err != nil {
		return fmt.Errorf("setting registry managementState: %w", err)
	}

	cond := waiter.Condition{
		Name:     "internal registry pod Running",
		Interval: 10 * time.Second,
		Timeout:  s.timeouts.Registry,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			pods, err := s.oc.Pods(ctx, registryNamespace)
			if err != nil {
				return waiter.Pending("cannot list registry pods: %v", err), nil
			}
			for _, pod := range pods.Items {
				if strings.HasPrefix(pod.Name, "image-registry-") && string(pod.Status.Phase) == "Running" {
					return waiter.Satisfied(), nil
				}
			}
			return waiter.Pending("no Running registry pod in %s yet", registryNamespace), nil
		},
	}
	if err := waiter.Wait(ctx, cond, s.log); err != nil {
		return err
	}
	s.logf("Internal registry is running.")
	return nil
}

func anyContains(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}
