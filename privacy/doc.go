// Package privacy provides authorization policies for tablekit models.
//
// A Policy is an ordered list of rules evaluated before a statement binds
// its values. Policy.Hook turns it into a PreBind hook:
//
//	var Posts = tablekit.NewModel[Post](PostTable).WithHooks(
//	    privacy.NewPolicy(
//	        privacy.DenyIfNoViewer[Post, int64](),
//	        privacy.HasRole[Post, int64]("admin"),
//	        privacy.AllowOperationRule[Post, int64](sqlgen.OpSelect),
//	        privacy.IsOwner[Post, int64](PostAuthorColumn),
//	        privacy.AlwaysDenyRule[Post, int64](),
//	    ).Hook(),
//	)
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a decision:
//
//   - Allow grants access and stops evaluation
//   - Deny rejects the statement and stops evaluation
//   - Skip, or nil, continues with the next rule
//
// Any other error stops evaluation and is returned as is. A policy whose
// rules all skip allows the statement; end it with AlwaysDenyRule to deny
// by default.
//
// # Viewer
//
// The viewer is stored in the context and read by the built-in rules:
//
//	ctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{
//	    UserID: "42",
//	    Roles:  []string{"editor"},
//	})
//	post, err := Posts.Read(ctx, db, 7)
//
// DecisionContext bypasses rule evaluation entirely, which is useful for
// system jobs and migrations:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
