package domain

type Command string

const (
	CmdApprove               Command = "APPROVE"
	CmdReject                Command = "REJECT"
	CmdAutoReject            Command = "AUTO_REJECT"
	CmdCancel                Command = "CANCEL"
	CmdVerifyInitialPayment  Command = "VERIFY_INITIAL_PAYMENT"
	CmdSubmitHandoverProof   Command = "SUBMIT_HANDOVER_PROOF"
	CmdConfirmReceipt        Command = "CONFIRM_RECEIPT"
	CmdNoShowCancel          Command = "NO_SHOW_CANCEL"
	CmdInitiateReturn        Command = "INITIATE_RETURN"
	CmdConfirmReturnSchedule Command = "CONFIRM_RETURN_SCHEDULE"
	CmdSubmitReturnProof     Command = "SUBMIT_RETURN_PROOF"
	CmdConfirmReturn         Command = "CONFIRM_RETURN"
	CmdRaiseDispute          Command = "RAISE_DISPUTE"
	CmdResolveDispute        Command = "RESOLVE_DISPUTE"
	CmdRecordFirstPayout     Command = "RECORD_FIRST_PAYOUT"
	CmdRecordFinalPayout     Command = "RECORD_FINAL_PAYOUT"
)

// AllCommands is ordered the way actions are presented to clients.
var AllCommands = []Command{
	CmdApprove,
	CmdReject,
	CmdAutoReject,
	CmdCancel,
	CmdVerifyInitialPayment,
	CmdSubmitHandoverProof,
	CmdConfirmReceipt,
	CmdNoShowCancel,
	CmdInitiateReturn,
	CmdConfirmReturnSchedule,
	CmdSubmitReturnProof,
	CmdConfirmReturn,
	CmdRaiseDispute,
	CmdResolveDispute,
	CmdRecordFirstPayout,
	CmdRecordFinalPayout,
}

// Transition is the single transition table of the rental lifecycle.
// Every status change in the service layer goes through it.
func Transition(current RentalStatus, cmd Command) (RentalStatus, error) {
	next, ok := nextStatus(current, cmd)
	if !ok {
		return current, &InvalidTransitionError{Current: current, Command: cmd}
	}
	return next, nil
}

func nextStatus(current RentalStatus, cmd Command) (RentalStatus, bool) {
	switch cmd {
	case CmdApprove:
		return from(current, RentalStatusApproved, RentalStatusPending)
	case CmdReject, CmdAutoReject:
		return from(current, RentalStatusRejected, RentalStatusPending)
	case CmdCancel:
		return from(current, RentalStatusCancelled, RentalStatusPending, RentalStatusApproved)
	case CmdVerifyInitialPayment:
		return from(current, RentalStatusToHandover, RentalStatusApproved)
	case CmdSubmitHandoverProof:
		return from(current, RentalStatusPendingProof, RentalStatusToHandover, RentalStatusPendingProof)
	case CmdConfirmReceipt:
		return from(current, RentalStatusActive, RentalStatusPendingProof)
	case CmdNoShowCancel:
		return from(current, RentalStatusCancelled, RentalStatusToHandover)
	case CmdInitiateReturn:
		return from(current, RentalStatusPendingReturn, RentalStatusActive)
	case CmdConfirmReturnSchedule:
		return from(current, RentalStatusReturnScheduled, RentalStatusPendingReturn)
	case CmdSubmitReturnProof:
		return from(current, RentalStatusPendingReturnConfirmation, RentalStatusReturnScheduled, RentalStatusPendingReturnConfirmation)
	case CmdConfirmReturn:
		return from(current, RentalStatusPendingFinalConfirmation, RentalStatusPendingReturnConfirmation)
	case CmdRaiseDispute:
		return from(current, RentalStatusDisputed, RentalStatusPendingFinalConfirmation, RentalStatusDisputed)
	case CmdResolveDispute:
		return from(current, RentalStatusPendingFinalConfirmation, RentalStatusDisputed)
	case CmdRecordFirstPayout:
		return from(current, RentalStatusCompletedPendingPayments, RentalStatusPendingFinalConfirmation)
	case CmdRecordFinalPayout:
		return from(current, RentalStatusCompletedWithPayments, RentalStatusCompletedPendingPayments)
	}
	return current, false
}

func from(current, next RentalStatus, allowed ...RentalStatus) (RentalStatus, bool) {
	for _, s := range allowed {
		if current == s {
			return next, true
		}
	}
	return current, false
}

// RequireStatus guards operations that act inside a status without changing it.
func RequireStatus(r *Rental, cmd Command, allowed ...RentalStatus) error {
	for _, s := range allowed {
		if r.Status == s {
			return nil
		}
	}
	return &InvalidTransitionError{Current: r.Status, Command: cmd}
}

// Non-transition commands that still need a status guard.
const (
	CmdSubmitPayment        Command = "SUBMIT_PAYMENT"
	CmdSubmitOverduePayment Command = "SUBMIT_OVERDUE_PAYMENT"
	CmdReviewPayment        Command = "REVIEW_PAYMENT"
	CmdProposeSchedule      Command = "PROPOSE_SCHEDULE"
	CmdSelectSchedule       Command = "SELECT_SCHEDULE"
	CmdConfirmSchedule      Command = "CONFIRM_SCHEDULE"
	CmdDeleteSchedule       Command = "DELETE_SCHEDULE"
	CmdReportNoShow         Command = "REPORT_NO_SHOW"
	CmdResolveNoShow        Command = "RESOLVE_NO_SHOW"
	CmdReviewDispute        Command = "REVIEW_DISPUTE"
)

var commandRoles = map[Command][]Role{
	CmdApprove:               {RoleLender},
	CmdReject:                {RoleLender},
	CmdAutoReject:            {RoleSystem},
	CmdCancel:                {RoleRenter, RoleLender},
	CmdVerifyInitialPayment:  {RoleAdmin},
	CmdSubmitHandoverProof:   {RoleLender},
	CmdConfirmReceipt:        {RoleRenter},
	CmdNoShowCancel:          {RoleAdmin},
	CmdInitiateReturn:        {RoleRenter, RoleLender},
	CmdConfirmReturnSchedule: {RoleRenter, RoleLender},
	CmdSubmitReturnProof:     {RoleRenter},
	CmdConfirmReturn:         {RoleLender},
	CmdRaiseDispute:          {RoleLender},
	CmdResolveDispute:        {RoleAdmin},
	CmdRecordFirstPayout:     {RoleAdmin},
	CmdRecordFinalPayout:     {RoleAdmin},
}

// ActionFacts are the derived facts that refine the pure transition table.
type ActionFacts struct {
	Overdue                bool
	OverduePaid            bool
	PendingInitialPayment  bool
	PendingOverduePayment  bool
	InitialPaymentVerified bool
	ConfirmedPickup        bool
	HasPendingDispute      bool
	CanRaiseDispute        bool
	PayoutLegs             int
}

// AvailableActions derives the commands an actor in the given role may issue
// right now. It never grants anything the transition table would refuse.
func AvailableActions(r *Rental, role Role, facts ActionFacts) []Command {
	var actions []Command
	for _, cmd := range AllCommands {
		if _, ok := nextStatus(r.Status, cmd); !ok {
			continue
		}
		if !roleAllowed(cmd, role) || !factsAllow(r, cmd, role, facts) {
			continue
		}
		actions = append(actions, cmd)
	}
	actions = append(actions, auxiliaryActions(r, role, facts)...)
	return actions
}

func roleAllowed(cmd Command, role Role) bool {
	for _, allowed := range commandRoles[cmd] {
		if allowed == role {
			return true
		}
	}
	return false
}

func factsAllow(r *Rental, cmd Command, role Role, f ActionFacts) bool {
	switch cmd {
	case CmdCancel:
		if r.Status == RentalStatusPending {
			return role == RoleRenter
		}
		return !f.InitialPaymentVerified
	case CmdVerifyInitialPayment:
		return f.PendingInitialPayment
	case CmdSubmitHandoverProof, CmdConfirmReceipt:
		return f.ConfirmedPickup
	case CmdInitiateReturn:
		return !f.Overdue || f.OverduePaid
	case CmdConfirmReturnSchedule, CmdNoShowCancel:
		// Driven by schedule confirmation and no-show resolution.
		return false
	case CmdRaiseDispute:
		return f.CanRaiseDispute
	case CmdRecordFirstPayout:
		return f.PayoutLegs == 0
	case CmdRecordFinalPayout:
		return f.PayoutLegs == 1
	}
	return true
}

func auxiliaryActions(r *Rental, role Role, f ActionFacts) []Command {
	var actions []Command
	switch role {
	case RoleRenter:
		if r.Status == RentalStatusApproved && !f.PendingInitialPayment {
			actions = append(actions, CmdSubmitPayment)
		}
		if f.Overdue && !f.OverduePaid && !f.PendingOverduePayment {
			actions = append(actions, CmdSubmitOverduePayment)
		}
	case RoleAdmin:
		if f.PendingOverduePayment {
			actions = append(actions, CmdReviewPayment)
		}
		if f.HasPendingDispute {
			actions = append(actions, CmdReviewDispute)
		}
	}
	if role == RoleRenter || role == RoleLender {
		switch r.Status {
		case RentalStatusApproved, RentalStatusToHandover, RentalStatusPendingReturn:
			actions = append(actions, CmdProposeSchedule)
		}
		if r.Status == RentalStatusToHandover && f.ConfirmedPickup {
			actions = append(actions, CmdReportNoShow)
		}
	}
	return actions
}
