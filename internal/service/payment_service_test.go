package service

import (
	"context"
	"testing"

	"procurement-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayment_ContractMustBelongToSupplier(t *testing.T) {
	f := newFixture()
	svc := f.paymentService()
	manager := principalWith(model.RoleProcurementManager)

	supplierA := f.addSupplier(model.SupplierStatusApproved, nil)
	supplierB := f.addSupplier(model.SupplierStatusApproved, nil)
	contractOfB := f.addContract(supplierB.ID, model.ContractStatusActive, nil)

	contractID := contractOfB.ID.String()
	_, err := svc.CreatePayment(context.Background(), manager, CreatePaymentRequest{
		SupplierID: supplierA.ID.String(),
		ContractID: &contractID,
		Amount:     "1200.00",
	})
	require.Error(t, err)
	assert.Equal(t, CodeBadUserInput, CodeOf(err))
	assert.EqualError(t, err, "contract does not belong to the specified supplier")
	assert.Empty(t, f.payments.payments)
}

func TestCreatePayment_AmountMustBePositive(t *testing.T) {
	f := newFixture()
	svc := f.paymentService()
	manager := principalWith(model.RoleProcurementManager)
	supplier := f.addSupplier(model.SupplierStatusApproved, nil)

	for _, amount := range []string{"0", "-50.00", "not-a-number"} {
		_, err := svc.CreatePayment(context.Background(), manager, CreatePaymentRequest{
			SupplierID: supplier.ID.String(),
			Amount:     amount,
		})
		require.Error(t, err, "amount %q", amount)
		assert.Equal(t, CodeBadUserInput, CodeOf(err))
	}
}

func TestCreatePayment_StartsPendingAndNotifiesManagers(t *testing.T) {
	f := newFixture()
	f.users.addUser(model.RoleProcurementManager, true)
	svc := f.paymentService()
	specialist := principalWith(model.RoleProcurementSpecialist)
	supplier := f.addSupplier(model.SupplierStatusApproved, nil)

	res, err := svc.CreatePayment(context.Background(), specialist, CreatePaymentRequest{
		SupplierID: supplier.ID.String(),
		Amount:     "1500.25",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, res.Status)
	assert.NotEmpty(t, res.PaymentNumber)
	assert.Equal(t, "1500.2500", res.Amount)

	created := f.notifications.all()
	require.Len(t, created, 1)
	assert.Equal(t, model.NotificationPaymentCreated, created[0].Type)
}

func TestUpdatePayment_OnlyPendingEditable(t *testing.T) {
	f := newFixture()
	svc := f.paymentService()
	manager := principalWith(model.RoleProcurementManager)
	supplier := f.addSupplier(model.SupplierStatusApproved, nil)
	payment := f.addPayment(supplier.ID, model.PaymentStatusApproved, nil)

	note := "updated"
	_, err := svc.UpdatePayment(context.Background(), manager, payment.ID.String(), UpdatePaymentRequest{Notes: &note})
	require.Error(t, err)
	assert.Equal(t, CodeBadUserInput, CodeOf(err))
	assert.EqualError(t, err, "only pending payments can be edited")
}

func TestApprovePayment_PendingOnly(t *testing.T) {
	f := newFixture()
	svc := f.paymentService()
	manager := principalWith(model.RoleProcurementManager)
	supplier := f.addSupplier(model.SupplierStatusApproved, nil)

	pending := f.addPayment(supplier.ID, model.PaymentStatusPending, nil)
	res, err := svc.ApprovePayment(context.Background(), manager, pending.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusApproved, res.Status)

	rejected := f.addPayment(supplier.ID, model.PaymentStatusRejected, nil)
	_, err = svc.ApprovePayment(context.Background(), manager, rejected.ID.String())
	require.Error(t, err)
	assert.EqualError(t, err, "payment is already REJECTED")
}

func TestMarkPaymentPaid_OnlyFromApproved(t *testing.T) {
	f := newFixture()
	svc := f.paymentService()
	manager := principalWith(model.RoleProcurementManager)
	requester := principalWith(model.RoleProcurementSpecialist)
	supplier := f.addSupplier(model.SupplierStatusApproved, nil)

	pending := f.addPayment(supplier.ID, model.PaymentStatusPending, &requester.ID)
	_, err := svc.MarkPaymentPaid(context.Background(), manager, pending.ID.String())
	require.Error(t, err)
	assert.Equal(t, CodeBadUserInput, CodeOf(err))
	assert.EqualError(t, err, "only approved payments can be marked as paid")

	approved := f.addPayment(supplier.ID, model.PaymentStatusApproved, &requester.ID)
	res, err := svc.MarkPaymentPaid(context.Background(), manager, approved.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, res.Status)

	// The requester is told their payment settled
	created := f.notifications.all()
	require.Len(t, created, 1)
	assert.Equal(t, requester.ID, created[0].UserID)
	assert.Equal(t, model.NotificationPaymentPaid, created[0].Type)
}

func TestRejectPayment_AppendsReasonToNotes(t *testing.T) {
	f := newFixture()
	svc := f.paymentService()
	manager := principalWith(model.RoleProcurementManager)
	supplier := f.addSupplier(model.SupplierStatusApproved, nil)
	payment := f.addPayment(supplier.ID, model.PaymentStatusPending, nil)

	res, err := svc.RejectPayment(context.Background(), manager, payment.ID.String(), "missing invoice")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRejected, res.Status)
	assert.Contains(t, res.Notes, "Rejected: missing invoice")
}

func TestDeletePayment_SpecialistOwnPendingOnly(t *testing.T) {
	f := newFixture()
	svc := f.paymentService()
	specialist := principalWith(model.RoleProcurementSpecialist)
	supplier := f.addSupplier(model.SupplierStatusApproved, nil)

	own := f.addPayment(supplier.ID, model.PaymentStatusPending, &specialist.ID)
	require.NoError(t, svc.DeletePayment(context.Background(), specialist, own.ID.String()))

	paid := f.addPayment(supplier.ID, model.PaymentStatusPaid, &specialist.ID)
	err := svc.DeletePayment(context.Background(), specialist, paid.ID.String())
	require.Error(t, err)
	assert.Equal(t, CodeForbidden, CodeOf(err))
}
