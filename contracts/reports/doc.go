/*
Package reports implements Reports contract which keeps incident reports
submitted by users and verified by the contract owner.

Any account can submit a report describing an incident, its location and a
link to the evidence. The contract owner reviews reports off-chain and
verifies them by transferring GAS to the contract with the report ID as
transfer data. The contract marks the report verified, records the amount as
the reward and forwards it to the reporter.

Reports are never removed or renumbered: IDs are assigned sequentially
starting from 0, so the list of all reports is [0, reportCount).

# Contract notifications

ReportSubmitted notification. This notification is produced when a new report
is stored.

	ReportSubmitted:
	  - name: id
	    type: Integer
	  - name: reporter
	    type: Hash160

ReportVerified notification. This notification is produced when the owner
pays a reward for the report.

	ReportVerified:
	  - name: id
	    type: Integer
	  - name: reward
	    type: Integer
*/
package reports

/*
Contract storage model.

# Summary
Key-value storage format:
 - 'o' -> interop.Hash160
   contract owner, set on deployment
 - 'c' -> int
   number of submitted reports
 - 'r' + <id> -> std.Serialize(Report)
   report by its ID, ID is encoded with convert.ToBytes
*/
