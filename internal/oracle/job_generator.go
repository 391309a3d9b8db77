package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/andreypavlenko/jobber/internal/oracle/envelope"
)

// JobGeneratorInput is the Job Description Generator's request shape.
type JobGeneratorInput struct {
	Title string
}

// JobGeneratorOutput is the Job Description Generator's canonical response
// shape.
type JobGeneratorOutput struct {
	Department       string
	Location         string
	Seniority        string
	Skills           []string
	NiceToHaveSkills []string
	Responsibilities []string
	Qualifications   []string
	Description      string
}

// JobGenerator wraps Client for the job-description-generation oracle.
type JobGenerator struct {
	*Client
	cfg Config
}

func NewJobGenerator(c *Client, cfg Config) *JobGenerator { return &JobGenerator{Client: c, cfg: cfg} }

func (o *JobGenerator) Generate(ctx context.Context, in JobGeneratorInput) JobGeneratorOutput {
	if o.cfg.Mock {
		o.fallback(ctx, "job_generator", "mock mode")
		return jobGeneratorFallback(in)
	}

	text, err := o.call(ctx, "job_generator", o.cfg, func(ctx context.Context) (string, int, int, error) {
		prompt := jobGeneratorPrompt(in)
		msg, err := o.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(o.cfg.Model),
			MaxTokens: 2048,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", 0, 0, err
		}
		var out strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		return out.String(), int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens), nil
	})
	if err != nil {
		o.fallback(ctx, "job_generator", err.Error())
		return jobGeneratorFallback(in)
	}

	raw, err := envelope.Parse(text)
	if err != nil {
		o.fallback(ctx, "job_generator", "unparseable response: "+err.Error())
		return jobGeneratorFallback(in)
	}

	skills := raw.strSlice("skills", "must_have_skills")
	seniority := strings.ToLower(raw.str("seniority"))
	switch seniority {
	case "junior", "mid", "senior", "lead":
	default:
		seniority = "mid"
	}
	out := JobGeneratorOutput{
		Department:       raw.str("department"),
		Location:         raw.str("location"),
		Seniority:        seniority,
		Skills:           skills,
		NiceToHaveSkills: raw.strSlice("nice_to_have_skills"),
		Responsibilities: raw.strSlice("responsibilities"),
		Qualifications:   raw.strSlice("qualifications"),
		Description:      raw.str("description"),
	}
	if out.Department == "" || out.Location == "" || len(out.Skills) == 0 || out.Description == "" {
		o.fallback(ctx, "job_generator", "incomplete response fields")
		return jobGeneratorFallback(in)
	}
	return out
}

func jobGeneratorPrompt(in JobGeneratorInput) string {
	return fmt.Sprintf(`You are an expert technical recruiter creating a job posting. Job title: %s.

Respond with JSON matching this shape exactly:
{"department": "...", "location": "...", "seniority": "junior|mid|senior|lead",
 "skills": ["..."], "nice_to_have_skills": ["..."],
 "responsibilities": ["..."], "qualifications": ["..."], "description": "..."}

"skills" holds 6-8 specific required technologies/tools. "nice_to_have_skills" holds
4-6 additional tools or certifications. "responsibilities" holds 6-8 action-verb bullets.
"qualifications" holds 3-5 degree/experience/certification requirements. "description" is
a 3-4 paragraph professional posting.`, in.Title)
}

var jobGeneratorDepartments = []struct {
	keyword string
	dept    string
}{
	{"engineer", "Engineering"}, {"developer", "Engineering"}, {"devops", "Infrastructure"},
	{"frontend", "Engineering"}, {"backend", "Engineering"}, {"fullstack", "Engineering"},
	{"data", "Data & Analytics"}, {"analyst", "Data & Analytics"}, {"scientist", "Data Science"},
	{"designer", "Design"}, {"ux", "Design"}, {"ui", "Design"},
	{"product", "Product"}, {"marketing", "Marketing"}, {"growth", "Marketing"},
	{"sales", "Sales"}, {"hr", "Human Resources"}, {"recruiter", "Human Resources"},
}

type jobGeneratorRoleProfile struct {
	skills           []string
	niceToHave       []string
	responsibilities []string
	qualifications   []string
}

var jobGeneratorRoleProfileOrder = []string{"frontend", "backend", "data", "devops", "product"}

var jobGeneratorRoleProfiles = map[string]jobGeneratorRoleProfile{
	"frontend": {
		skills:     []string{"React", "TypeScript", "Next.js", "CSS3", "HTML5", "Tailwind CSS", "Jest", "Webpack"},
		niceToHave: []string{"GraphQL", "Storybook", "Cypress", "Figma", "Web Accessibility (WCAG)"},
		responsibilities: []string{
			"Build and maintain responsive web applications using React and TypeScript",
			"Implement pixel-perfect UI components from design specs using Tailwind CSS",
			"Develop server-side rendered pages and API routes with Next.js",
			"Write comprehensive unit and integration tests using Jest and React Testing Library",
			"Optimize application performance including bundle size and rendering efficiency",
			"Collaborate with designers and backend engineers on API contracts",
			"Review pull requests and mentor junior developers on frontend best practices",
		},
		qualifications: []string{
			"Bachelor's degree in Computer Science or equivalent practical experience",
			"3+ years of professional frontend development experience with React",
			"Strong understanding of responsive design and cross-browser compatibility",
			"Experience with state management (Redux, Zustand, or React Context)",
		},
	},
	"backend": {
		skills:     []string{"Python", "Node.js", "PostgreSQL", "REST APIs", "Docker", "AWS", "Redis", "FastAPI"},
		niceToHave: []string{"Kubernetes", "GraphQL", "Kafka", "Terraform", "gRPC"},
		responsibilities: []string{
			"Design and implement RESTful APIs and microservices using Python or Node.js",
			"Design and optimize PostgreSQL database schemas, queries, and migrations",
			"Build and maintain CI/CD pipelines and containerized deployments with Docker",
			"Implement caching strategies using Redis for high-performance data access",
			"Write comprehensive unit and integration tests with high coverage",
			"Conduct code reviews and participate in architecture design discussions",
			"Monitor application health and performance using logging and metrics",
		},
		qualifications: []string{
			"Bachelor's degree in Computer Science, Software Engineering, or related field",
			"4+ years of backend development experience with Python or Node.js",
			"Strong knowledge of relational databases and SQL optimization",
			"Experience deploying and managing applications on AWS",
		},
	},
	"data": {
		skills:     []string{"SQL", "Python", "Power BI", "Tableau", "ETL", "Spark", "Airflow", "Data Modeling"},
		niceToHave: []string{"dbt", "Snowflake", "Looker", "Databricks", "AWS Redshift"},
		responsibilities: []string{
			"Design and build ETL/ELT pipelines to extract, transform, and load data",
			"Create interactive dashboards and reports using Power BI and Tableau",
			"Write complex SQL queries for data analysis and business intelligence",
			"Develop and maintain data models that support analytics workloads",
			"Collaborate with stakeholders to translate business requirements into data solutions",
			"Ensure data quality through validation, testing, and pipeline monitoring",
			"Document data lineage, schema definitions, and transformation logic",
		},
		qualifications: []string{
			"Bachelor's degree in Computer Science, Statistics, Mathematics, or related field",
			"3+ years of experience in data engineering or analytics",
			"Expert-level SQL skills and experience with at least one BI/visualization tool",
			"Experience with cloud data platforms (Snowflake, BigQuery, or Redshift)",
		},
	},
	"devops": {
		skills:     []string{"Kubernetes", "Terraform", "AWS", "CI/CD", "Docker", "Prometheus", "Linux", "Ansible"},
		niceToHave: []string{"ArgoCD", "Helm", "Vault", "Datadog", "GCP"},
		responsibilities: []string{
			"Design and maintain cloud infrastructure using Terraform and AWS services",
			"Build and optimize CI/CD pipelines for automated testing and deployment",
			"Manage Kubernetes clusters and containerized application deployments",
			"Implement monitoring and observability using Prometheus and Grafana",
			"Automate infrastructure provisioning with Ansible",
			"Ensure system reliability and security through SRE best practices",
			"Respond to production incidents and conduct post-mortem analysis",
		},
		qualifications: []string{
			"Bachelor's degree in Computer Science, IT, or related field",
			"4+ years of DevOps/SRE experience in production environments",
			"Strong Linux administration and shell scripting skills",
			"AWS certification preferred",
		},
	},
	"product": {
		skills:     []string{"Jira", "Amplitude", "SQL", "Figma", "A/B Testing", "Mixpanel", "Roadmapping", "User Research"},
		niceToHave: []string{"Pendo", "Productboard", "Looker", "Python", "Intercom"},
		responsibilities: []string{
			"Define product strategy and roadmap based on user research and data analysis",
			"Write detailed product requirements documents and user stories",
			"Prioritize features using data-driven frameworks and manage the backlog",
			"Analyze product metrics to measure feature impact and inform decisions",
			"Collaborate with engineering, design, and QA throughout the development lifecycle",
			"Conduct user interviews, usability testing, and competitive analysis",
			"Present product updates to stakeholders on a regular cadence",
		},
		qualifications: []string{
			"Bachelor's degree in Business, Computer Science, or related field",
			"3+ years of product management experience in a SaaS or technology company",
			"Strong analytical skills with hands-on SQL experience",
			"Excellent communication and stakeholder management skills",
		},
	},
}

var jobGeneratorDefaultProfile = jobGeneratorRoleProfile{
	skills:     []string{"Python", "SQL", "Git", "REST APIs", "Docker", "AWS", "CI/CD", "Linux"},
	niceToHave: []string{"Kubernetes", "Terraform", "GraphQL", "TypeScript", "Redis"},
	responsibilities: []string{
		"Design, develop, and maintain solutions in the role's domain",
		"Collaborate with cross-functional teams to deliver high-quality software",
		"Write clean, maintainable, and well-tested code following best practices",
		"Participate in code reviews and contribute to technical design discussions",
		"Monitor application performance and troubleshoot production issues",
		"Document technical specifications and system architecture",
		"Mentor junior team members and contribute to engineering best practices",
	},
	qualifications: []string{
		"Bachelor's degree in Computer Science, Engineering, or related field",
		"3+ years of relevant professional experience",
		"Strong problem-solving skills and attention to detail",
		"Experience with agile development methodologies",
	},
}

// jobGeneratorFallback is the keyword-indexed canned-role-profile table from
// grounded line-for-line on
// original_source/backend/agents/job_generator.py's _mock_generate.
func jobGeneratorFallback(in JobGeneratorInput) JobGeneratorOutput {
	titleLower := strings.ToLower(in.Title)

	department := "General"
	for _, d := range jobGeneratorDepartments {
		if strings.Contains(titleLower, d.keyword) {
			department = d.dept
			break
		}
	}

	seniority := "mid"
	switch {
	case containsAny(titleLower, "junior", "jr", "entry", "intern"):
		seniority = "junior"
	case containsAny(titleLower, "senior", "sr", "principal", "staff"):
		seniority = "senior"
	case containsAny(titleLower, "lead", "head", "director", "vp"):
		seniority = "lead"
	}

	profile, matched := jobGeneratorDefaultProfile, false
	for _, keyword := range jobGeneratorRoleProfileOrder {
		if strings.Contains(titleLower, keyword) {
			profile, matched = jobGeneratorRoleProfiles[keyword], true
			break
		}
	}
	responsibilities := profile.responsibilities
	if !matched {
		responsibilities = append([]string{fmt.Sprintf("Design, develop, and maintain solutions as a %s", in.Title)}, responsibilities[1:]...)
	}

	description := fmt.Sprintf(
		"We are seeking a skilled %s to join our %s team. In this role, you will leverage tools like %s "+
			"to design, develop, and deliver solutions that drive operational efficiency and business impact.\n\n"+
			"You will be responsible for %s and %s. The ideal candidate has hands-on experience building "+
			"scalable solutions and thrives in a collaborative, fast-paced environment.\n\n"+
			"We offer competitive compensation, flexible remote work arrangements, and a culture that values "+
			"innovation, continuous learning, and technical excellence.",
		in.Title, department, joinOrNone(profile.skills, 3),
		strings.ToLower(responsibilities[0]), strings.ToLower(safeIndex(responsibilities, 1)),
	)

	return JobGeneratorOutput{
		Department:       department,
		Location:         "Remote",
		Seniority:        seniority,
		Skills:           profile.skills,
		NiceToHaveSkills: profile.niceToHave,
		Responsibilities: responsibilities,
		Qualifications:   profile.qualifications,
		Description:      description,
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func safeIndex(items []string, i int) string {
	if i < 0 || i >= len(items) {
		return ""
	}
	return items[i]
}
