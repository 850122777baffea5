package operators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	operatorsv1 "github.com/operator-framework/api/pkg/operators/v1"
	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

const olmSourceNamespace = "openshift-marketplace"

// InstallAll installs NFD, then KMM, then the AMD GPU Operator. The order
// is a correctness requirement: KMM and the GPU operator schedule work based
// on NFD's node labels. The first failure aborts the remainder.
func (s *Stack) InstallAll(ctx context.Context) error {
	amdgpu := s.cfg.AMDGPU
	if amdgpu.StartingCSV == "" {
		if csv := pinnedCSV(amdgpu.Package, s.cfg.GPUOperatorVersion); csv != "" {
			amdgpu.StartingCSV = csv
		}
	}

	for _, op := range []struct {
		name string
		src  config.OLMSource
	}{
		{"NFD", s.cfg.NFD},
		{"KMM", s.cfg.KMM},
		{"AMD GPU Operator", amdgpu},
	} {
		if err := s.installOperator(ctx, op.name, op.src); err != nil {
			return fmt.Errorf("installing %s (namespace %s): %w", op.name, op.src.Namespace, err)
		}
	}
	return nil
}

// pinnedCSV derives a startingCSV from a full x.y.z version; a major.minor
// version pins nothing and lets OLM pick from the channel.
func pinnedCSV(pkg, version string) string {
	if strings.Count(version, ".") != 2 {
		return ""
	}
	return fmt.Sprintf("%s.v%s", pkg, version)
}

func (s *Stack) installOperator(ctx context.Context, name string, src config.OLMSource) error {
	s.logf("Installing %s operator (package %s, channel %s)...", name, src.Package, src.Channel)

	if err := s.oc.EnsureNamespace(ctx, src.Namespace); err != nil {
		return err
	}
	if err := s.ensureOperatorGroup(ctx, src); err != nil {
		return err
	}
	if err := s.ensureSubscription(ctx, src); err != nil {
		return err
	}

	installedCSV, err := s.waitForSubscriptionInstalled(ctx, src)
	if err != nil {
		return err
	}
	if err := s.waitForCSVSucceeded(ctx, src.Namespace, installedCSV); err != nil {
		return err
	}

	s.logf("%s operator installed (CSV %s).", name, installedCSV)
	return nil
}

// ensureOperatorGroup applies the namespace's OperatorGroup. AllNamespaces
// operators (KMM, AMD GPU) need an empty spec; a targeted OperatorGroup
// leaves their CSV stuck in Pending.
func (s *Stack) ensureOperatorGroup(ctx context.Context, src config.OLMSource) error {
	og := operatorsv1.OperatorGroup{
		TypeMeta: metav1.TypeMeta{
			APIVersion: operatorsv1.GroupVersion.String(),
			Kind:       operatorsv1.OperatorGroupKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      src.Namespace,
			Namespace: src.Namespace,
		},
	}
	if !src.AllNamespaces {
		og.Spec.TargetNamespaces = []string{src.Namespace}
	}

	manifest, err := sigsyaml.Marshal(og)
	if err != nil {
		return fmt.Errorf("encoding OperatorGroup: %w", err)
	}
	if _, err := s.oc.Apply(ctx, string(manifest)); err != nil {
		return fmt.Errorf("applying OperatorGroup in %s: %w", src.Namespace, err)
	}
	return nil
}

func (s *Stack) ensureSubscription(ctx context.Context, src config.OLMSource) error {
	sub := operatorsv1alpha1.Subscription{
		TypeMeta: metav1.TypeMeta{
			APIVersion: operatorsv1alpha1.SubscriptionCRDAPIVersion,
			Kind:       operatorsv1alpha1.SubscriptionKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      src.SubscriptionName,
			Namespace: src.Namespace,
		},
		Spec: &operatorsv1alpha1.SubscriptionSpec{
			Channel:                src.Channel,
			Package:                src.Package,
			CatalogSource:          src.Catalog,
			CatalogSourceNamespace: olmSourceNamespace,
			InstallPlanApproval:    operatorsv1alpha1.ApprovalAutomatic,
			StartingCSV:            src.StartingCSV,
		},
	}

	manifest, err := sigsyaml.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encoding Subscription: %w", err)
	}
	if _, err := s.oc.Apply(ctx, string(manifest)); err != nil {
		return fmt.Errorf("applying Subscription %s: %w", src.SubscriptionName, err)
	}
	return nil
}

// waitForSubscriptionInstalled blocks until the subscription resolved to an
// installed CSV and returns its name. A ResolutionFailed condition (missing
// package, empty channel) fails the wait immediately.
func (s *Stack) waitForSubscriptionInstalled(ctx context.Context, src config.OLMSource) (string, error) {
	var installedCSV string
	cond := waiter.Condition{
		Name:     fmt.Sprintf("subscription %s/%s resolved", src.Namespace, src.SubscriptionName),
		Interval: 10 * time.Second,
		Timeout:  s.timeouts.OperatorInstall,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			sub, err := s.oc.Subscription(ctx, src.Namespace, src.SubscriptionName)
			if err != nil {
				if errors.Is(err, ocp.ErrNotFound) {
					return waiter.Pending("subscription not visible yet"), nil
				}
				return waiter.Pending("cannot read subscription: %v", err), nil
			}
			if msg := ocp.SubscriptionResolutionFailure(sub); msg != "" {
				return waiter.Failed("%s (check that package %s exists in the %s catalog on channel %s)",
					msg, src.Package, src.Catalog, src.Channel), nil
			}
			if csv := ocp.InstalledCSVName(sub); csv != "" {
				installedCSV = csv
				return waiter.Satisfied(), nil
			}
			return waiter.Pending("no installedCSV yet"), nil
		},
	}
	if err := waiter.Wait(ctx, cond, s.log); err != nil {
		return "", err
	}
	return installedCSV, nil
}

// waitForCSVSucceeded blocks until the named CSV reaches phase Succeeded.
// Phase Failed fails the wait with the CSV's own status message.
func (s *Stack) waitForCSVSucceeded(ctx context.Context, namespace, csvName string) error {
	cond := waiter.Condition{
		Name:     fmt.Sprintf("CSV %s/%s Succeeded", namespace, csvName),
		Interval: 10 * time.Second,
		Timeout:  s.timeouts.OperatorInstall,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			csv, err := s.oc.CSV(ctx, namespace, csvName)
			if err != nil {
				if errors.Is(err, ocp.ErrNotFound) {
					return waiter.Pending("CSV not created yet"), nil
				}
				return waiter.Pending("cannot read CSV: %v", err), nil
			}
			switch csv.Status.Phase {
			case operatorsv1alpha1.CSVPhaseSucceeded:
				return waiter.Satisfied(), nil
			case operatorsv1alpha1.CSVPhaseFailed:
				reason := csv.Status.Message
				if reason == "" {
					reason = string(csv.Status.Reason)
				}
				return waiter.Failed("CSV reported Failed: %s", reason), nil
			default:
				return waiter.Pending("phase %s", csv.Status.Phase), nil
			}
		},
	}
	return waiter.Wait(ctx, cond, s.log)
}
